package testsupport

import (
	"testing"

	"atelier/internal/config"
	"atelier/internal/logging"
	"atelier/internal/metadata"
)

// MustOpenMetadata opens the metadata store selected by cfg and closes it when
// the test finishes.
func MustOpenMetadata(t testing.TB, cfg *config.Config) *metadata.Store {
	t.Helper()

	store, err := metadata.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("metadata.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
