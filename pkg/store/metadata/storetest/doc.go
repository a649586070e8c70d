// Package storetest provides a conformance test suite for metadata store
// implementations.
//
// All metadata drivers (memory, badger, sqlite, postgres) should pass these
// tests. The suite verifies that every driver satisfies the metadata.Store
// behavioral contract: vault lifecycle, block registration and reference
// counting, file assignment and finalization.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) metadata.Store {
//	        return memory.New()
//	    })
//	}
//
// The factory function receives *testing.T so it can call t.TempDir() for
// drivers that need filesystem paths (e.g., badger) and t.Cleanup for
// teardown.
package storetest
