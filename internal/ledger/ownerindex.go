package ledger

import (
	"github.com/feral-file/varus-ledger/internal/domain"
)

// ownerIndex maps an account to the insertion-ordered set of token ids it
// holds. It is a derived index over the token map and is only ever mutated
// through the engine's paired remove+add so the two can never diverge.
type ownerIndex struct {
	byOwner map[domain.AccountID]*orderedSet
}

func newOwnerIndex() *ownerIndex {
	return &ownerIndex{byOwner: make(map[domain.AccountID]*orderedSet)}
}

// add inserts id into account's set. Idempotent when already present.
func (x *ownerIndex) add(account domain.AccountID, id domain.TokenID) {
	set, ok := x.byOwner[account]
	if !ok {
		set = newOrderedSet()
		x.byOwner[account] = set
	}
	set.add(id)
}

// remove deletes id from account's set. No-op when the id is absent or the
// account has no set yet.
func (x *ownerIndex) remove(account domain.AccountID, id domain.TokenID) {
	set, ok := x.byOwner[account]
	if !ok {
		return
	}
	set.remove(id)
	if set.len() == 0 {
		delete(x.byOwner, account)
	}
}

// tokensOf returns the account's token ids in insertion order. The returned
// slice is a copy; unknown accounts yield an empty slice.
func (x *ownerIndex) tokensOf(account domain.AccountID) []domain.TokenID {
	set, ok := x.byOwner[account]
	if !ok {
		return []domain.TokenID{}
	}
	out := make([]domain.TokenID, set.len())
	copy(out, set.ids)
	return out
}

func (x *ownerIndex) countOf(account domain.AccountID) uint64 {
	set, ok := x.byOwner[account]
	if !ok {
		return 0
	}
	return uint64(set.len())
}

// orderedSet is a set of token ids that preserves insertion order for
// enumeration. Removal keeps the relative order of the remaining ids.
type orderedSet struct {
	pos map[domain.TokenID]int
	ids []domain.TokenID
}

func newOrderedSet() *orderedSet {
	return &orderedSet{pos: make(map[domain.TokenID]int)}
}

func (s *orderedSet) add(id domain.TokenID) {
	if _, ok := s.pos[id]; ok {
		return
	}
	s.pos[id] = len(s.ids)
	s.ids = append(s.ids, id)
}

func (s *orderedSet) remove(id domain.TokenID) {
	i, ok := s.pos[id]
	if !ok {
		return
	}
	delete(s.pos, id)
	s.ids = append(s.ids[:i], s.ids[i+1:]...)
	for j := i; j < len(s.ids); j++ {
		s.pos[s.ids[j]] = j
	}
}

func (s *orderedSet) len() int {
	return len(s.ids)
}
