package ledger

import (
	"github.com/feral-file/varus-ledger/internal/domain"
)

// allowList is the set of accounts with voluntary protected status.
// Membership is append-only through the public surface; enumeration follows
// insertion order.
type allowList struct {
	members map[domain.AccountID]struct{}
	order   []domain.AccountID
}

func newAllowList() *allowList {
	return &allowList{members: make(map[domain.AccountID]struct{})}
}

// add inserts account and reports whether it was newly added.
func (l *allowList) add(account domain.AccountID) bool {
	if _, ok := l.members[account]; ok {
		return false
	}
	l.members[account] = struct{}{}
	l.order = append(l.order, account)
	return true
}

func (l *allowList) contains(account domain.AccountID) bool {
	_, ok := l.members[account]
	return ok
}

func (l *allowList) list() []domain.AccountID {
	out := make([]domain.AccountID, len(l.order))
	copy(out, l.order)
	return out
}
