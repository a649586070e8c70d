package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/painterjd/deuce/pkg/blocks"
	"github.com/painterjd/deuce/pkg/files"
	metamem "github.com/painterjd/deuce/pkg/store/metadata/memory"
	storemem "github.com/painterjd/deuce/pkg/store/storage/memory"
	"github.com/painterjd/deuce/pkg/vaults"
)

// testServices builds the full service stack over in-memory backends.
func testServices(t *testing.T) Services {
	t.Helper()

	meta := metamem.New()
	store := storemem.New()
	t.Cleanup(func() {
		meta.Close()
		store.Close()
	})

	return Services{
		Vaults:  vaults.New(meta, store),
		Blocks:  blocks.New(meta, store),
		Storage: blocks.NewStorageService(meta, store),
		Files:   files.New(meta, store),
	}
}

func TestAPIServer_Lifecycle(t *testing.T) {
	cfg := APIConfig{
		Port:         18090,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
	}

	server, err := NewServer(cfg, testServices(t))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Start server in background
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// The ping probe needs no tenant header
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/v1.0/ping", cfg.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	if resp.Header.Get("Transaction-Id") == "" {
		t.Error("Expected Transaction-Id header on response")
	}

	// Shutdown
	cancel()

	// Wait for server to stop
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Expected nil on graceful shutdown, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shutdown in time")
	}
}

func TestAPIServer_HealthEndpoint(t *testing.T) {
	cfg := APIConfig{Port: 18091}

	server, err := NewServer(cfg, testServices(t))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start server in background
	go func() {
		_ = server.Start(ctx)
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/v1.0/health", cfg.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}
}

func TestAPIServer_Port(t *testing.T) {
	server, err := NewServer(APIConfig{Port: 19999}, testServices(t))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	if server.Port() != 19999 {
		t.Errorf("Expected port 19999, got %d", server.Port())
	}
}

func TestAPIServer_DefaultConfig(t *testing.T) {
	// Port and timeouts not set - should use defaults
	server, err := NewServer(APIConfig{}, testServices(t))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// After applyDefaults, port should be 8080
	if server.Port() != 8080 {
		t.Errorf("Expected default port 8080, got %d", server.Port())
	}
}

func TestAPIServer_InvalidAuthSecret(t *testing.T) {
	cfg := APIConfig{
		Auth: AuthConfig{
			Enabled: true,
			Secret:  "short", // Too short, should fail
		},
	}

	if _, err := NewServer(cfg, testServices(t)); err == nil {
		t.Fatal("Expected error for invalid auth secret, got nil")
	}
}
