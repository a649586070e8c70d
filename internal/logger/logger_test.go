package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")
		defer SetLevel("INFO")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("WarnLevelHidesDebugAndInfo", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("WARN")
		defer SetLevel("INFO")

		Debug("debug message")
		Info("info message")
		Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("LOUD")
		assert.Equal(t, LevelInfo, Level(currentLevel.Load()))
	})
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	defer SetFormat("text")
	SetLevel("INFO")

	Info("block registered", KeyVaultID, "vault_A", KeyBlockID, strings.Repeat("ab", 20))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "block registered", record["msg"])
	assert.Equal(t, "vault_A", record[KeyVaultID])
	assert.Equal(t, strings.Repeat("ab", 20), record[KeyBlockID])
}

func TestTextFormat(t *testing.T) {
	t.Run("KeyValuePairs", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		Info("vault created", KeyVaultID, "vault_A", KeySize, 42)

		out := buf.String()
		assert.Contains(t, out, "vault created")
		assert.Contains(t, out, "vault_id=vault_A")
		assert.Contains(t, out, "size=42")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		Info("health", "status", "sqlite is active")

		assert.Contains(t, buf.String(), `status="sqlite is active"`)
	})
}

func TestContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")

	lc := NewLogContext("txn-123", "p1").WithVault("vault_A")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "file finalized", KeyFileID, "f-1")

	out := buf.String()
	assert.Contains(t, out, "transaction_id=txn-123")
	assert.Contains(t, out, "project_id=p1")
	assert.Contains(t, out, "vault_id=vault_A")
	assert.Contains(t, out, "file_id=f-1")
}

func TestContextWithoutLogContext(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	InfoCtx(context.Background(), "plain message")

	assert.Contains(t, buf.String(), "plain message")
}

func TestLogContextClone(t *testing.T) {
	lc := NewLogContext("txn-1", "p1")
	clone := lc.WithVault("vault_B")

	assert.Empty(t, lc.VaultID)
	assert.Equal(t, "vault_B", clone.VaultID)
	assert.Equal(t, lc.TransactionID, clone.TransactionID)

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Zero(t, nilCtx.DurationMs())
}

func TestWith(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")

	l := With(KeyComponent, "blocks")
	l.Info("upload complete")

	assert.Contains(t, buf.String(), "component=blocks")
}

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, KeyVaultID, VaultID("v").Key)
	assert.Equal(t, "v", VaultID("v").Value.String())
	assert.Equal(t, KeyRefCount, RefCount(3).Key)
	assert.True(t, Err(nil).Equal(slog.Attr{}))
	assert.Equal(t, assert.AnError.Error(), Err(assert.AnError).Value.String())
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Info("concurrent write", KeyCount, 1)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 20)
	for _, line := range lines {
		assert.Contains(t, line, "concurrent write")
	}
}
