// Package api provides the device's local HTTP status server.
//
// Endpoints:
//
//	GET /healthz   dependency checks; 200 when all pass, 503 otherwise
//	GET /status    device id, MQTT state and subscriptions, runtime stats
//	GET /journal   local journal entries (?kind=command|failure&limit=&offset=)
//	GET /metrics   Prometheus metrics
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// It is meant for the device's local network only and has no authentication;
// bind it to 127.0.0.1 unless a technician needs remote access.
package api
