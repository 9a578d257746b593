package ledger

import (
	"fmt"

	"github.com/feral-file/varus-ledger/internal/domain"
)

// Snapshot is the full persisted state of a ledger: the allocator counter,
// every token with its metadata, the per-owner enumeration order and the
// allow-list in insertion order. Approvals are process-scoped capabilities
// and are deliberately absent.
type Snapshot struct {
	NextID     domain.TokenID
	Tokens     []TokenWrite
	OwnerOrder map[domain.AccountID][]domain.TokenID
	Allowlist  []domain.AccountID
}

// Snapshot captures the engine's current state.
func (e *Engine) Snapshot() (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		NextID:     e.nextID,
		OwnerOrder: make(map[domain.AccountID][]domain.TokenID, len(e.owners.byOwner)),
		Allowlist:  e.gate.list(),
	}

	for account := range e.owners.byOwner {
		for _, id := range e.owners.tokensOf(account) {
			meta := e.metadata[id]
			hash, err := meta.Hash()
			if err != nil {
				return nil, fmt.Errorf("failed to hash metadata of token %d: %w", id, err)
			}
			snap.Tokens = append(snap.Tokens, TokenWrite{
				Token:        e.tokens[id],
				Metadata:     meta,
				MetadataHash: hash,
			})
		}
		snap.OwnerOrder[account] = e.owners.tokensOf(account)
	}

	return snap, nil
}

// Restore replaces the engine's state with the snapshot. The snapshot is
// verified first: every token must appear in exactly one owner's order, under
// the owner recorded on the token, and no ordered id may be missing from the
// token set.
func (e *Engine) Restore(snap *Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens := make(map[domain.TokenID]domain.Token, len(snap.Tokens))
	metadata := make(map[domain.TokenID]domain.TokenMetadata, len(snap.Tokens))
	for _, w := range snap.Tokens {
		if _, ok := tokens[w.Token.ID]; ok {
			return fmt.Errorf("snapshot has duplicate token %d", w.Token.ID)
		}
		if w.Token.ID >= snap.NextID {
			return fmt.Errorf("snapshot token %d is beyond the allocator counter %d", w.Token.ID, snap.NextID)
		}
		tokens[w.Token.ID] = w.Token
		metadata[w.Token.ID] = w.Metadata
	}

	owners := newOwnerIndex()
	indexed := make(map[domain.TokenID]struct{}, len(tokens))
	for account, ids := range snap.OwnerOrder {
		for _, id := range ids {
			tok, ok := tokens[id]
			if !ok {
				return fmt.Errorf("snapshot owner index references unknown token %d", id)
			}
			if tok.Owner != account {
				return fmt.Errorf("snapshot token %d is indexed under %q but owned by %q", id, account, tok.Owner)
			}
			if _, dup := indexed[id]; dup {
				return fmt.Errorf("snapshot token %d is indexed under more than one owner", id)
			}
			indexed[id] = struct{}{}
			owners.add(account, id)
		}
	}
	if len(indexed) != len(tokens) {
		return fmt.Errorf("snapshot owner index covers %d of %d tokens", len(indexed), len(tokens))
	}

	gate := newAllowList()
	for _, account := range snap.Allowlist {
		gate.add(account)
	}

	e.nextID = snap.NextID
	e.tokens = tokens
	e.metadata = metadata
	e.owners = owners
	e.gate = gate
	return nil
}
