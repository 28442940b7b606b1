// Package config handles loading and validating BossHub device configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (BOSSHUB_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The platform API key should be supplied via BOSSHUB_API_KEY rather than
//     committed to a config file
//   - The config file should have restricted permissions (0600)
//   - A missing API key is fatal unless api.allow_missing_key is set
//
// Usage:
//
//	cfg, err := config.Load("configs/device.yaml")
//	if errors.Is(err, config.ErrMissingAPIKey) {
//	    log.Fatal("no API key")
//	}
//	fmt.Println(cfg.API.ServerURL)
package config
