// Package mqtt provides the MQTT transports for the BossHub device SDK.
//
// This package manages:
//   - Sessions with the platform broker (paho.mqtt.golang)
//   - Publishing and subscribing at the configured QoS
//   - Last Will and Testament on devices/{id}/status for offline detection
//   - The devices/{id}/... topic naming convention
//
// # Scheduling modes
//
// Two transports share one implementation and are chosen by configuration,
// never by probing the platform:
//
//   - Client delivers inbound messages on paho's goroutines. Use it on hosts
//     that can run background work.
//   - PollingClient queues inbound messages and hands them over one at a
//     time from Pump, which the host's main loop calls. Nothing registered
//     by the host runs outside Pump.
//
// Neither transport reconnects by itself. A lost session is reported
// through SetConnectionLostHandler and the owner decides what to do.
//
// # Security Considerations
//
//   - TLS should be enabled for production brokers (mqtt.broker.tls=true)
//   - Credentials come from config or BOSSHUB_MQTT_USERNAME/PASSWORD
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client := mqtt.NewClient(cfg.MQTT, deviceID)
//	client.SetMessageHandler(func(topic string, payload []byte) {
//	    log.Printf("Received: %s = %s", topic, payload)
//	})
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	_ = client.Subscribe(mqtt.Topics{}.DeviceCommand(deviceID))
package mqtt
