package testsupport

import (
	"context"
	"testing"

	"vinflow/internal/config"
	"vinflow/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewUnit creates a unit for tests using the provided store. The unit
// starts in the first pipeline stage with an open ledger entry.
func NewUnit(t testing.TB, store *ledger.Store, attrs ledger.NewUnit, actor ledger.Actor) *ledger.Unit {
	t.Helper()

	unit, err := store.CreateUnit(context.Background(), attrs, actor, "")
	if err != nil {
		t.Fatalf("store.CreateUnit: %v", err)
	}
	return unit
}
