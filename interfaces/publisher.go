package interfaces

import (
	"context"

	"github.com/openvoip/voicemailstack/internal/enum"
	"github.com/openvoip/voicemailstack/internal/models"
)

// StatePublisher maps snapshots and state changes onto the bus topic
// schema. Implementations own the discovery-once bookkeeping and must
// never block the caller beyond a bounded publish timeout.
type StatePublisher interface {
	Connect() error
	Close()

	// EnsureDiscovery publishes the retained discovery descriptor for a
	// mailbox exactly once per process run (and again on bus reconnect).
	EnsureDiscovery(ctx context.Context, mailbox *models.Mailbox) error

	// RepublishDiscovery publishes the discovery descriptor regardless of
	// whether it was already announced. Used to restore a wiped retained
	// config topic.
	RepublishDiscovery(ctx context.Context, mailbox *models.Mailbox) error

	// PublishState publishes the retained state and attributes payloads
	// derived from the snapshot.
	PublishState(ctx context.Context, mailbox *models.Mailbox, snapshot models.MailboxSnapshot) error

	// PublishAvailability publishes the retained availability signal.
	PublishAvailability(ctx context.Context, mailboxID string, availability enum.Availability) error
}
