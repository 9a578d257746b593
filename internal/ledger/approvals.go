package ledger

import (
	"sync"

	"github.com/feral-file/varus-ledger/internal/domain"
)

// ApprovalRegistry answers whether a caller holds a current approval for a
// token under its present owner. Approval bookkeeping is a collaborator of
// the engine, not part of it: the engine only consults and clears approvals
// and never inspects how they are stored.
type ApprovalRegistry interface {
	// Grant records an approval for grantee to transfer the token on the
	// owner's behalf and returns the approval id. Granting again replaces
	// the previous approval with a fresh id.
	Grant(id domain.TokenID, grantee domain.AccountID) uint64

	// Authorize checks that caller may transfer the token owned by owner.
	// Returns ErrUnauthorized when no approval exists for caller, and
	// ErrStaleApproval when approvalID is supplied but no longer matches
	// the recorded approval.
	Authorize(id domain.TokenID, owner, caller domain.AccountID, approvalID *uint64) error

	// Clear drops every outstanding approval for the token. Approvals do not
	// survive a transfer of the token they were granted against.
	Clear(id domain.TokenID)
}

// memoryApprovals is the default in-process ApprovalRegistry. Approvals are
// capabilities scoped to a process lifetime; they are deliberately not part
// of the persisted ledger snapshot.
type memoryApprovals struct {
	mu      sync.Mutex
	byToken map[domain.TokenID]*tokenApprovals
}

type tokenApprovals struct {
	nextID   uint64
	accounts map[domain.AccountID]uint64
}

// NewMemoryApprovals creates an empty in-memory approval registry.
func NewMemoryApprovals() ApprovalRegistry {
	return &memoryApprovals{byToken: make(map[domain.TokenID]*tokenApprovals)}
}

func (r *memoryApprovals) Grant(id domain.TokenID, grantee domain.AccountID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ta, ok := r.byToken[id]
	if !ok {
		ta = &tokenApprovals{accounts: make(map[domain.AccountID]uint64)}
		r.byToken[id] = ta
	}

	approvalID := ta.nextID
	ta.nextID++
	ta.accounts[grantee] = approvalID
	return approvalID
}

func (r *memoryApprovals) Authorize(id domain.TokenID, _, caller domain.AccountID, approvalID *uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ta, ok := r.byToken[id]
	if !ok {
		return domain.ErrUnauthorized
	}

	current, ok := ta.accounts[caller]
	if !ok {
		return domain.ErrUnauthorized
	}

	if approvalID != nil && *approvalID != current {
		return domain.ErrStaleApproval
	}

	return nil
}

func (r *memoryApprovals) Clear(id domain.TokenID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byToken, id)
}
