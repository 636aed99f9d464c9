package testsupport

import (
	"testing"

	"timelapsebox/internal/catalog"
	"timelapsebox/internal/config"
)

// MustOpenCatalog opens the session catalog for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.OpenFromConfig(cfg)
	if err != nil {
		t.Fatalf("catalog.OpenFromConfig: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
