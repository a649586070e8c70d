package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/metadata/storetest"
)

func TestConformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres conformance suite in short mode")
	}

	storetest.RunConformanceSuite(t, func(t *testing.T) metadata.Store {
		return newTestStore(t)
	})
}

func TestHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres health test in short mode")
	}

	store := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := store.Health(ctx)
	if len(checks) != 1 {
		t.Fatalf("Health() returned %d messages, want 1", len(checks))
	}
	if want := "is active"; !strings.Contains(checks[0], want) {
		t.Errorf("Health() = %q, want message containing %q", checks[0], want)
	}
}
