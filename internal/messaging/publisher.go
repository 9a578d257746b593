package messaging

import (
	"context"

	"github.com/feral-file/varus-ledger/internal/domain"
)

// Publisher defines the interface for publishing ledger events to a message broker
type Publisher interface {
	// PublishEvent publishes a committed ledger event to the message broker
	PublishEvent(ctx context.Context, event *domain.LedgerEvent) error
	// Close closes the connection
	Close()
}

// NoopPublisher discards every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishEvent(_ context.Context, _ *domain.LedgerEvent) error {
	return nil
}

func (NoopPublisher) Close() {}
