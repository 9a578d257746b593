package ledger

import (
	"context"

	"github.com/feral-file/varus-ledger/internal/domain"
)

// TokenWrite is a freshly minted token together with its metadata and the
// metadata's canonical hash.
type TokenWrite struct {
	Token        domain.Token
	Metadata     domain.TokenMetadata
	MetadataHash string
}

// OwnerMove records a token changing hands: a paired owner-index remove+add
// plus the owner field update on the token itself.
type OwnerMove struct {
	TokenID domain.TokenID
	From    domain.AccountID
	To      domain.AccountID
}

// Changeset is the full set of writes produced by one public operation. The
// engine builds it during validation without touching its own state, hands it
// to the persistence hook, and applies it to memory only after the hook
// succeeds. Either every write in the set lands or none of them do.
type Changeset struct {
	// NextID is the allocator counter value after the operation
	NextID domain.TokenID
	// Mints are new token records, in allocation order
	Mints []TokenWrite
	// Moves are ownership changes, in operation order
	Moves []OwnerMove
	// AllowlistAdd is a new allowlist member, if the operation added one
	AllowlistAdd *domain.AccountID

	clearApprovals []domain.TokenID
	events         []*domain.LedgerEvent
}

// Empty reports whether the changeset performs no writes.
func (cs *Changeset) Empty() bool {
	return len(cs.Mints) == 0 && len(cs.Moves) == 0 && cs.AllowlistAdd == nil
}

// PersistFunc is invoked with the changeset of every mutating operation
// before the engine applies it to memory. Returning an error aborts the
// operation with no state change on either side. A nil PersistFunc makes the
// engine purely in-memory.
type PersistFunc func(ctx context.Context, cs *Changeset) error

// Emitter receives ledger events after an operation commits. Implementations
// must not block; emission failures are the emitter's problem, never the
// ledger's.
type Emitter interface {
	Emit(event *domain.LedgerEvent)
}
