package memory_test

import (
	"testing"

	"github.com/painterjd/deuce/pkg/store/storage"
	"github.com/painterjd/deuce/pkg/store/storage/memory"
	"github.com/painterjd/deuce/pkg/store/storage/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) storage.Store {
		return memory.New()
	})
}
