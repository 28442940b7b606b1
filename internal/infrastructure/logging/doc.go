// Package logging provides structured logging for the BossHub device SDK.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the SDK and the device agent.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0").ForDevice(deviceID)
//	logger.Info("command received", "topic", topic)
//
// # Security
//
// Never log the platform API key or MQTT password.
package logging
