package store

import (
	"context"

	"github.com/feral-file/varus-ledger/internal/ledger"
)

// Store persists the ledger's state. The engine stays the in-memory system of
// record; the store commits each operation's changeset before the engine
// applies it, and rebuilds a full snapshot at startup.
type Store interface {
	// Migrate creates or updates the database schema
	Migrate(ctx context.Context) error
	// ApplyChangeset commits every write in the changeset atomically
	ApplyChangeset(ctx context.Context, cs *ledger.Changeset) error
	// LoadSnapshot reads the full persisted ledger state
	LoadSnapshot(ctx context.Context) (*ledger.Snapshot, error)
}
