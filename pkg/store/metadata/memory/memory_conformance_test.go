package memory_test

import (
	"testing"

	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/metadata/memory"
	"github.com/painterjd/deuce/pkg/store/metadata/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) metadata.Store {
		return memory.New()
	})
}
