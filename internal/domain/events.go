package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind classifies ledger events published to the message broker.
type EventKind string

const (
	EventKindMint     EventKind = "mint"
	EventKindTransfer EventKind = "transfer"
	EventKindCure     EventKind = "cure"
)

// LedgerEvent is the fire-and-forget notification emitted after a successful
// mint, transfer or cure. Emission failure never fails the operation that
// produced the event.
type LedgerEvent struct {
	// ID is a ULID, sortable by emission time
	ID   string    `json:"id"`
	Kind EventKind `json:"kind"`
	// Authorizer is the account whose authority performed the operation: the
	// owner, or an approval holder acting on the owner's behalf
	Authorizer AccountID `json:"authorizer"`
	// Sender is the account tokens moved away from; empty for mints
	Sender AccountID `json:"sender,omitempty"`
	// Receiver is the primary receiving account
	Receiver AccountID `json:"receiver"`
	// SecondaryReceiver is set on dual transfers that produced a mutant
	SecondaryReceiver *AccountID `json:"secondary_receiver,omitempty"`
	// TokenIDs lists every token touched, in operation order. For a dual
	// transfer the mutant id follows the original.
	TokenIDs []TokenID `json:"token_ids"`
	Memo     *string   `json:"memo,omitempty"`
	// Timestamp is the emission time, not a commit time; ordering across
	// events is carried by ID
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent builds an event with a fresh ULID and the current time.
func NewLedgerEvent(kind EventKind, authorizer AccountID) *LedgerEvent {
	return &LedgerEvent{
		ID:         ulid.Make().String(),
		Kind:       kind,
		Authorizer: authorizer,
		Timestamp:  time.Now().UTC(),
	}
}
