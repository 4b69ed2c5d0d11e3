package store

import (
	"sync"

	"github.com/openvoip/voicemailstack/internal/models"
)

// SnapshotStore holds the last observed snapshot per mailbox. Each mailbox
// key is written only by that mailbox's sync worker; the lock exists for the
// cross-mailbox map access, not for per-key coordination.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]models.MailboxSnapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]models.MailboxSnapshot),
	}
}

// Get returns the last snapshot for a mailbox. The second return value is
// false before the first successful poll.
func (s *SnapshotStore) Get(mailboxID string) (models.MailboxSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[mailboxID]
	return snapshot, ok
}

// Set replaces the stored snapshot wholesale.
func (s *SnapshotStore) Set(snapshot models.MailboxSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.MailboxID] = snapshot
}

// MailboxIDs returns the ids of all mailboxes with a stored snapshot.
func (s *SnapshotStore) MailboxIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	return ids
}
