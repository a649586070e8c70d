package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors.
//
// Struct tags cover value ranges and enumerations; cross-field rules that
// tags cannot express are checked explicitly afterwards.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return err
	}

	// Bearer auth needs a usable signing secret. The length floor matches
	// what the verifier enforces at construction time.
	if cfg.Auth.Enabled && len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 characters when auth is enabled")
	}

	// Tracing without a collector endpoint exports nowhere.
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	// Postgres cannot fall back to a local file; its connection block is
	// required up front so misconfiguration fails at startup, not first use.
	if cfg.Metadata.Type == "postgres" && len(cfg.Metadata.Postgres) == 0 {
		return fmt.Errorf("metadata.postgres settings are required when metadata.type is postgres")
	}

	// S3 has no sensible default bucket.
	if cfg.Storage.Type == "s3" && len(cfg.Storage.S3) == 0 {
		return fmt.Errorf("storage.s3 settings are required when storage.type is s3")
	}

	return nil
}
