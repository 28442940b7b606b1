package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementHeartbeat  = "device_heartbeat"
	MeasurementStatus     = "device_status"
	MeasurementSale       = "sales"
	MeasurementConnection = "mqtt_connection"
	MeasurementCommand    = "device_commands"
)

// WriteHeartbeat records a heartbeat and whether the platform acknowledged it.
func (c *Client) WriteHeartbeat(acknowledged bool) {
	c.write(MeasurementHeartbeat, nil, map[string]any{"acknowledged": acknowledged})
}

// WriteStatus records a device state change.
func (c *Client) WriteStatus(state, errorCode string) {
	fields := map[string]any{"state": state}
	if errorCode != "" {
		fields["error_code"] = errorCode
	}
	c.write(MeasurementStatus, map[string]string{"state": state}, fields)
}

// WriteSale records a completed sale.
func (c *Client) WriteSale(productID string, amount float64, method string) {
	c.write(MeasurementSale,
		map[string]string{"product_id": productID, "method": method},
		map[string]any{"amount": amount},
	)
}

// WriteConnectionState records an MQTT connection state transition.
func (c *Client) WriteConnectionState(state string) {
	c.write(MeasurementConnection, map[string]string{"state": state}, map[string]any{"value": 1})
}

// WriteCommand records a received command.
func (c *Client) WriteCommand(topic, command string) {
	tags := map[string]string{"topic": topic}
	if command != "" {
		tags["command"] = command
	}
	c.write(MeasurementCommand, tags, map[string]any{"count": 1})
}

// write tags the point with the device id and hands it to the batcher.
func (c *Client) write(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(c.point(measurement, tags, fields))
}

func (c *Client) point(measurement string, tags map[string]string, fields map[string]any) *write.Point {
	all := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		all[k] = v
	}
	all["device_id"] = c.deviceID
	return write.NewPoint(measurement, all, fields, c.now())
}
