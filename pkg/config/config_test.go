package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/painterjd/deuce/internal/bytesize"
)

func TestLoad_DefaultConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config
	configContent := `
log:
  level: "INFO"

server:
  port: 8080

metadata:
  type: memory

storage:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Load config
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Log.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Log.Format)
	}
	if cfg.Log.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Log.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.API.MaxReturnedNum != 80 {
		t.Errorf("Expected default max_returned_num 80, got %d", cfg.API.MaxReturnedNum)
	}
	if cfg.Metadata.Type != "memory" {
		t.Errorf("Expected metadata type 'memory', got %q", cfg.Metadata.Type)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	// This allows users to run the server without a config file for quick testing.
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}

	// Verify default config is returned
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}

	// Verify default API port
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	// Write invalid YAML
	configContent := `
log:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Should return error
	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_SizesAndDurations(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  read_timeout: 5s
  idle_timeout: 2m

api:
  max_block_size: 1MB

metadata:
  type: memory

storage:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read_timeout 5s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("Expected idle_timeout 2m, got %v", cfg.Server.IdleTimeout)
	}
	if cfg.API.MaxBlockSize != bytesize.MB {
		t.Errorf("Expected max_block_size 1MB, got %v", cfg.API.MaxBlockSize)
	}
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
log:
  level: "LOUD"

metadata:
  type: memory

storage:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for bogus log level, got nil")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	// Verify all defaults are set
	if cfg.Log.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Log.Format)
	}
	if cfg.Log.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Log.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.Server.Port)
	}
	if cfg.API.MaxBlockSize != 500*bytesize.KB {
		t.Errorf("Expected default max_block_size 500KB, got %v", cfg.API.MaxBlockSize)
	}
	if cfg.Metadata.Type != "badger" {
		t.Errorf("Expected default metadata store 'badger', got %q", cfg.Metadata.Type)
	}
	if cfg.Storage.Type != "fs" {
		t.Errorf("Expected default storage store 'fs', got %q", cfg.Storage.Type)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "deuce" {
		t.Errorf("Expected directory name 'deuce', got %q", filepath.Base(dir))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// Set environment variables
	_ = os.Setenv("DEUCE_LOG_LEVEL", "ERROR")
	_ = os.Setenv("DEUCE_SERVER_PORT", "9090")
	defer func() {
		_ = os.Unsetenv("DEUCE_LOG_LEVEL")
		_ = os.Unsetenv("DEUCE_SERVER_PORT")
	}()

	// Create minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
log:
  level: "INFO"

server:
  port: 8080

metadata:
  type: memory

storage:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify environment variables override config file
	if cfg.Log.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Log.Level)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090 from env var, got %d", cfg.Server.Port)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "saved", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Log.Level = "DEBUG"
	cfg.Server.Port = 9999
	cfg.Metadata = MetadataStoreConfig{Type: "sqlite"}
	cfg.Storage = StorageStoreConfig{Type: "memory"}

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig() failed: %v", err)
	}

	// Config files carry secrets; keep them owner-only
	if runtime.GOOS != "windows" {
		info, err := os.Stat(configPath)
		if err != nil {
			t.Fatalf("Stat() failed: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("Expected file mode 0600, got %v", info.Mode().Perm())
		}
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() after save failed: %v", err)
	}
	if loaded.Log.Level != "DEBUG" {
		t.Errorf("Expected saved level 'DEBUG', got %q", loaded.Log.Level)
	}
	if loaded.Server.Port != 9999 {
		t.Errorf("Expected saved port 9999, got %d", loaded.Server.Port)
	}
	if loaded.Metadata.Type != "sqlite" {
		t.Errorf("Expected saved metadata type 'sqlite', got %q", loaded.Metadata.Type)
	}
	if loaded.Storage.Type != "memory" {
		t.Errorf("Expected saved storage type 'memory', got %q", loaded.Storage.Type)
	}
}
