// Package metrics exposes Prometheus collectors for the device SDK:
// message routing, publish outcomes, reconnect attempts, connection state
// and platform API latency.
package metrics
