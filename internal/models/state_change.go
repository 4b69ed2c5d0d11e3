package models

import (
	"github.com/openvoip/voicemailstack/internal/enum"
)

// StateChange is one difference between two consecutive snapshots of a
// mailbox. Changes are transient: consumed once by the publisher, never
// persisted.
type StateChange struct {
	Type      enum.ChangeType
	MailboxID string

	// Record is set for MessageAdded, MessageRemoved and
	// ListenedStatusChanged; nil for CountsChanged.
	Record *MessageRecord

	// Counts carried by CountsChanged.
	Total      int
	Unlistened int
}
