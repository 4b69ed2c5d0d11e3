package interfaces

import (
	"context"

	"github.com/openvoip/voicemailstack/internal/models"
)

// VoipmsClient is the narrow provider surface required by the sync engine
// and the audio proxy. Implementations surface the typed error taxonomy
// from internal/errors and enforce the per-process request rate gate.
type VoipmsClient interface {
	// ListMailboxes returns all voicemail boxes on the account.
	ListMailboxes(ctx context.Context) ([]models.Mailbox, error)

	// ListMessages fetches every configured folder of the mailbox and
	// merges them into one snapshot ordered by folder priority, then
	// ascending message number.
	ListMessages(ctx context.Context, mailbox *models.Mailbox) (models.MailboxSnapshot, error)

	// FetchAudio retrieves and decodes the full audio payload for one
	// message. The provider returns audio inline inside a JSON envelope,
	// so the decoded bytes are necessarily buffered in memory.
	FetchAudio(ctx context.Context, ref models.AudioReference) ([]byte, error)

	// SetListened marks a message listened upstream. Best effort.
	SetListened(ctx context.Context, ref models.AudioReference) error

	// DeleteMessage removes a message upstream.
	DeleteMessage(ctx context.Context, ref models.AudioReference) error

	// CheckCredentials performs a cheap authenticated call to validate
	// the account credentials.
	CheckCredentials(ctx context.Context) error
}
