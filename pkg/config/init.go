package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is the commented starter configuration written by
// 'deuce config init'. %s is replaced with a freshly generated auth secret.
const sampleConfig = `# Deuce Configuration File
#
# Every value can be overridden with a DEUCE_ environment variable,
# e.g. DEUCE_LOG_LEVEL=DEBUG or DEUCE_SERVER_PORT=9080.

log:
  # Minimum level: DEBUG, INFO, WARN, ERROR
  level: INFO
  # Output format: text or json
  format: text
  # Where logs go: stdout, stderr, or a file path
  output: stdout

# Maximum time to wait for in-flight requests on shutdown
shutdown_timeout: 30s

server:
  host: 0.0.0.0
  port: 8080
  read_timeout: 10s
  write_timeout: 10s
  idle_timeout: 60s

api:
  # Cap on items per listing response
  max_returned_num: 80
  # Cap on a single block upload ("500KB", "1Mi", ...)
  max_block_size: 500KB

auth:
  # Bearer-token authentication for tenant routes. When enabled, requests
  # must carry a token signed with this secret (mint one with NewToken).
  enabled: false
  # Development secret generated by 'deuce config init'. For production,
  # set DEUCE_AUTH_SECRET instead of keeping the secret in this file:
  #   export DEUCE_AUTH_SECRET=$(openssl rand -hex 32)
  secret: "%s"
  issuer: deuce

metrics:
  # Prometheus /metrics on its own listener
  enabled: false
  port: 9090

telemetry:
  # OpenTelemetry tracing via OTLP gRPC
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0
  profiling:
    # Pyroscope continuous profiling
    enabled: false
    endpoint: http://localhost:4040

metadata:
  # Vaults, block references and file manifests.
  # Drivers: memory, badger, sqlite, postgres
  type: badger
  badger:
    path: ""            # empty uses $XDG_DATA_HOME/deuce/metadata
  # sqlite:
  #   path: /var/lib/deuce/metadata.db
  # postgres:
  #   host: localhost
  #   port: 5432
  #   database: deuce
  #   user: deuce
  #   password: ""
  #   ssl_mode: disable
  #   auto_migrate: true

storage:
  # Raw block bytes keyed by storage ID.
  # Drivers: memory, fs, s3
  type: fs
  fs:
    path: ""            # empty uses $XDG_DATA_HOME/deuce/storage
  # s3:
  #   bucket: deuce-blocks
  #   region: us-east-1
  #   endpoint: ""      # set for MinIO/Localstack
  #   key_prefix: blocks/
`

// InitConfig writes a starter configuration file at the default location and
// returns its path. Fails when the file already exists unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a starter configuration file at path. Fails when
// the file already exists unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	// 0600: the file carries the generated auth secret.
	content := fmt.Sprintf(sampleConfig, secret)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateSecret returns 32 bytes of entropy as a 64-character hex string.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate auth secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
