package mqtt

import "fmt"

// TopicPrefixDevices is the base for all per-device topics.
const TopicPrefixDevices = "devices"

// Topics provides builders for BossHub MQTT topics.
// Using these helpers keeps topic naming consistent between the SDK and
// device applications.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.DeviceCommand("a1b2c3")
//	// Returns: "devices/a1b2c3/command"
type Topics struct{}

// DeviceCommand returns the topic on which the platform sends commands to a
// device. Every device is always subscribed to its own command topic.
//
// Example: devices/a1b2c3/command
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/%s/command", TopicPrefixDevices, deviceID)
}

// DeviceStatus returns the device status topic (online/offline, LWT).
//
// Example: devices/a1b2c3/status
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixDevices, deviceID)
}

// DeviceLog returns the topic for device log lines.
//
// Example: devices/a1b2c3/log
func (Topics) DeviceLog(deviceID string) string {
	return fmt.Sprintf("%s/%s/log", TopicPrefixDevices, deviceID)
}

// DeviceResponse returns the topic for replies to platform commands.
//
// Example: devices/a1b2c3/response
func (Topics) DeviceResponse(deviceID string) string {
	return fmt.Sprintf("%s/%s/response", TopicPrefixDevices, deviceID)
}
