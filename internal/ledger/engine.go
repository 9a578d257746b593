package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/feral-file/varus-ledger/internal/domain"
)

// MutationPolicy decides whether a dual transfer may clone the token to the
// secondary receiver. protected reports the receiver's allow-list membership
// at decision time.
type MutationPolicy func(receiver domain.AccountID, protected bool) bool

// DefaultMutationPolicy suppresses the mutation clone for allow-listed
// receivers and permits it for everyone else.
func DefaultMutationPolicy(_ domain.AccountID, protected bool) bool {
	return !protected
}

// TransferParams carries the caller-supplied arguments of a transfer.
type TransferParams struct {
	Receiver domain.AccountID
	TokenID  domain.TokenID
	// SecondaryReceiver, when set, requests a mutation: a clone of the token
	// minted directly to this account as part of the same transfer
	SecondaryReceiver *domain.AccountID
	// ApprovalID pins the approval the caller claims to act under
	ApprovalID *uint64
	Memo       *string
}

// TransferResult reports what a transfer did.
type TransferResult struct {
	TokenID domain.TokenID `json:"token_id"`
	// MutantID is the id of the cloned token, when a mutation occurred
	MutantID *domain.TokenID `json:"mutant_id,omitempty"`
}

// CureResult reports the tokens a cure moved to the sink.
type CureResult struct {
	TokenIDs []domain.TokenID `json:"token_ids"`
}

// Options configures a new engine. Zero-value fields fall back to defaults.
type Options struct {
	Collection *domain.CollectionMetadata
	// Sink is the terminal holder for burned and cured tokens
	Sink      domain.AccountID
	Approvals ApprovalRegistry
	Policy    MutationPolicy
	// Persist, when set, must commit each changeset before the engine
	// applies it to memory
	Persist PersistFunc
	Emitter Emitter
}

// Engine is the token ownership and transfer core. All mutable ledger state
// is owned by one Engine instance and every public operation runs to
// completion under a single mutex, so no caller can observe a partially
// applied operation.
type Engine struct {
	mu sync.Mutex

	collection domain.CollectionMetadata
	sink       domain.AccountID

	nextID   domain.TokenID
	tokens   map[domain.TokenID]domain.Token
	metadata map[domain.TokenID]domain.TokenMetadata
	owners   *ownerIndex
	gate     *allowList

	approvals ApprovalRegistry
	policy    MutationPolicy
	persist   PersistFunc
	emitter   Emitter
}

// New creates an empty ledger engine.
func New(opts Options) *Engine {
	collection := domain.DefaultCollectionMetadata()
	if opts.Collection != nil {
		collection = *opts.Collection
	}
	sink := opts.Sink
	if sink == "" {
		sink = domain.SinkAccount
	}
	approvals := opts.Approvals
	if approvals == nil {
		approvals = NewMemoryApprovals()
	}
	policy := opts.Policy
	if policy == nil {
		policy = DefaultMutationPolicy
	}

	return &Engine{
		collection: collection,
		sink:       sink,
		tokens:     make(map[domain.TokenID]domain.Token),
		metadata:   make(map[domain.TokenID]domain.TokenMetadata),
		owners:     newOwnerIndex(),
		gate:       newAllowList(),
		approvals:  approvals,
		policy:     policy,
		persist:    opts.Persist,
		emitter:    opts.Emitter,
	}
}

// Mint allocates a fresh token id, stores the token and its metadata, and
// indexes it under owner.
func (e *Engine) Mint(ctx context.Context, meta domain.TokenMetadata, owner domain.AccountID) (domain.TokenID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs := &Changeset{NextID: e.nextID}
	id, err := e.stageMint(cs, meta, owner)
	if err != nil {
		return 0, err
	}

	event := domain.NewLedgerEvent(domain.EventKindMint, owner)
	event.Receiver = owner
	event.TokenIDs = []domain.TokenID{id}
	cs.events = append(cs.events, event)

	if err := e.commit(ctx, cs); err != nil {
		return 0, err
	}
	return id, nil
}

// Transfer moves a token to p.Receiver under the authority of caller, who
// must be the owner or hold a current approval. When p.SecondaryReceiver is
// set and the mutation policy allows it, a clone of the token is minted to
// the secondary receiver in the same operation.
func (e *Engine) Transfer(ctx context.Context, caller domain.AccountID, p TransferParams) (*TransferResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs, result, err := e.stageTransfer(caller, p)
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, cs); err != nil {
		return nil, err
	}
	return result, nil
}

// Cure moves every token the caller holds to the sink account, in the owner
// index's enumeration order. The set of ids is snapshotted before any move so
// the removals cannot skip or duplicate entries. All-or-nothing: a failure on
// any token leaves every holding in place.
func (e *Engine) Cure(ctx context.Context, caller domain.AccountID) (*CureResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.owners.tokensOf(caller)
	if len(ids) == 0 {
		return nil, domain.ErrNothingToCure
	}
	if caller == e.sink {
		// every move would be a self-transfer
		return nil, domain.ErrNoOpTransfer
	}

	cs := &Changeset{NextID: e.nextID}
	for _, id := range ids {
		cs.Moves = append(cs.Moves, OwnerMove{TokenID: id, From: caller, To: e.sink})
		cs.clearApprovals = append(cs.clearApprovals, id)
	}

	event := domain.NewLedgerEvent(domain.EventKindCure, caller)
	event.Sender = caller
	event.Receiver = e.sink
	event.TokenIDs = ids
	cs.events = append(cs.events, event)

	if err := e.commit(ctx, cs); err != nil {
		return nil, err
	}
	return &CureResult{TokenIDs: ids}, nil
}

// Register adds account to the allow-list. Idempotent; callable by anyone on
// behalf of any account.
func (e *Engine) Register(ctx context.Context, account domain.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gate.contains(account) {
		return nil
	}

	cs := &Changeset{NextID: e.nextID, AllowlistAdd: &account}
	return e.commit(ctx, cs)
}

// IsRegistered reports allow-list membership.
func (e *Engine) IsRegistered(account domain.AccountID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.contains(account)
}

// Allowlist returns every registered account in insertion order.
func (e *Engine) Allowlist() []domain.AccountID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.list()
}

// Approve grants grantee an approval to transfer the token on the caller's
// behalf. Only the current owner may grant.
func (e *Engine) Approve(id domain.TokenID, caller, grantee domain.AccountID) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tok, ok := e.tokens[id]
	if !ok {
		return 0, domain.ErrTokenNotFound
	}
	if tok.Owner != caller {
		return 0, domain.ErrUnauthorized
	}
	return e.approvals.Grant(id, grantee), nil
}

// TokensOf returns the token ids held by account, in insertion order.
func (e *Engine) TokensOf(account domain.AccountID) []domain.TokenID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owners.tokensOf(account)
}

// SupplyOf returns the number of tokens held by account.
func (e *Engine) SupplyOf(account domain.AccountID) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owners.countOf(account)
}

// Token returns the token record for id.
func (e *Engine) Token(id domain.TokenID) (domain.Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tok, ok := e.tokens[id]
	if !ok {
		return domain.Token{}, domain.ErrTokenNotFound
	}
	return tok, nil
}

// Metadata returns the metadata record for id.
func (e *Engine) Metadata(id domain.TokenID) (domain.TokenMetadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	meta, ok := e.metadata[id]
	if !ok {
		return domain.TokenMetadata{}, domain.ErrTokenNotFound
	}
	return meta, nil
}

// Collection returns the collection-level metadata.
func (e *Engine) Collection() domain.CollectionMetadata {
	return e.collection
}

// TotalSupply returns the number of tokens ever minted, including tokens
// held by the sink.
func (e *Engine) TotalSupply() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.tokens))
}

// Tokens returns up to limit tokens with ids >= from, in id order.
func (e *Engine) Tokens(from domain.TokenID, limit int) []domain.Token {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Token, 0, limit)
	for id := from; id < e.nextID && len(out) < limit; id++ {
		if tok, ok := e.tokens[id]; ok {
			out = append(out, tok)
		}
	}
	return out
}

// stageMint allocates an id against cs and records the mint. The engine's
// own state is untouched.
func (e *Engine) stageMint(cs *Changeset, meta domain.TokenMetadata, owner domain.AccountID) (domain.TokenID, error) {
	hash, err := meta.Hash()
	if err != nil {
		return 0, err
	}

	id := cs.NextID
	cs.NextID++
	cs.Mints = append(cs.Mints, TokenWrite{
		Token:        domain.Token{ID: id, Owner: owner},
		Metadata:     meta,
		MetadataHash: hash,
	})
	return id, nil
}

func (e *Engine) stageTransfer(caller domain.AccountID, p TransferParams) (*Changeset, *TransferResult, error) {
	tok, ok := e.tokens[p.TokenID]
	if !ok {
		return nil, nil, domain.ErrTokenNotFound
	}
	owner := tok.Owner

	if caller != owner {
		if err := e.approvals.Authorize(p.TokenID, owner, caller, p.ApprovalID); err != nil {
			return nil, nil, err
		}
	}

	// only the primary leg is subject to the self-transfer check; a mutation
	// may clone the token back to the sender
	if p.Receiver == owner {
		return nil, nil, domain.ErrNoOpTransfer
	}

	cs := &Changeset{NextID: e.nextID}
	cs.Moves = append(cs.Moves, OwnerMove{TokenID: p.TokenID, From: owner, To: p.Receiver})
	cs.clearApprovals = append(cs.clearApprovals, p.TokenID)

	result := &TransferResult{TokenID: p.TokenID}

	event := domain.NewLedgerEvent(domain.EventKindTransfer, caller)
	event.Sender = owner
	event.Receiver = p.Receiver
	event.TokenIDs = []domain.TokenID{p.TokenID}
	event.Memo = p.Memo

	if sec := p.SecondaryReceiver; sec != nil && *sec != p.Receiver && e.policy(*sec, e.gate.contains(*sec)) {
		meta, ok := e.metadata[p.TokenID]
		if !ok {
			return nil, nil, fmt.Errorf("missing metadata for token %d: %w", p.TokenID, domain.ErrTokenNotFound)
		}
		mutantID, err := e.stageMint(cs, meta, *sec)
		if err != nil {
			return nil, nil, err
		}
		result.MutantID = &mutantID
		event.SecondaryReceiver = sec
		event.TokenIDs = append(event.TokenIDs, mutantID)
	}

	cs.events = append(cs.events, event)
	return cs, result, nil
}

// commit persists the changeset, applies it to memory and emits its events.
// Memory is only touched after persistence succeeds, so a storage failure
// leaves no trace of the operation.
func (e *Engine) commit(ctx context.Context, cs *Changeset) error {
	if e.persist != nil && !cs.Empty() {
		if err := e.persist(ctx, cs); err != nil {
			return fmt.Errorf("failed to persist changeset: %w", err)
		}
	}

	e.apply(cs)

	if e.emitter != nil {
		for _, event := range cs.events {
			e.emitter.Emit(event)
		}
	}
	return nil
}

// apply is infallible: every precondition was checked while staging.
func (e *Engine) apply(cs *Changeset) {
	e.nextID = cs.NextID

	for _, w := range cs.Mints {
		e.tokens[w.Token.ID] = w.Token
		e.metadata[w.Token.ID] = w.Metadata
		e.owners.add(w.Token.Owner, w.Token.ID)
	}

	for _, m := range cs.Moves {
		e.owners.remove(m.From, m.TokenID)
		e.tokens[m.TokenID] = domain.Token{ID: m.TokenID, Owner: m.To}
		e.owners.add(m.To, m.TokenID)
	}

	if cs.AllowlistAdd != nil {
		e.gate.add(*cs.AllowlistAdd)
	}

	for _, id := range cs.clearApprovals {
		e.approvals.Clear(id)
	}
}
