package interfaces

import (
	"context"
	"time"

	"github.com/openvoip/voicemailstack/internal/enum"
)

type SyncService interface {
	Start(ctx context.Context) error
	Stop() error
	Status() map[string]MailboxStatus

	// RepublishAll re-announces discovery and the current retained state
	// for every mailbox with a stored snapshot.
	RepublishAll(ctx context.Context)
}

type MailboxStatus struct {
	State      enum.SyncState `json:"state"`
	LastError  string         `json:"lastError,omitempty"`
	LastPolled time.Time      `json:"lastPolled"`
	Total      int            `json:"total"`
	Unlistened int            `json:"unlistened"`
}
