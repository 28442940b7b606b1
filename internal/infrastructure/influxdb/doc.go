// Package influxdb mirrors BossHub device telemetry into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every point is tagged
// with the device id and written through the non-blocking, batched write
// API, so telemetry never stalls command handling or platform calls.
//
// # Measurements
//
//   - device_heartbeat: heartbeats and whether the platform acknowledged them
//   - device_status: reported state changes
//   - sales: reported sales (amount, product, method)
//   - mqtt_connection: connection state transitions
//   - device_commands: commands received over MQTT
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, deviceID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteSale("coke", 15, "QR")
package influxdb
