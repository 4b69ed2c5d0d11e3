package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvoip/voicemailstack/internal/models"
)

func TestSnapshotStore_GetBeforeFirstPoll(t *testing.T) {
	// Arrange
	store := NewSnapshotStore()

	// Act
	snapshot, ok := store.Get("100")

	// Assert
	assert.False(t, ok)
	assert.Empty(t, snapshot.Messages)
}

func TestSnapshotStore_SetReplacesWholesale(t *testing.T) {
	// Arrange
	store := NewSnapshotStore()
	first := models.MailboxSnapshot{
		MailboxID: "100",
		Messages: []models.MessageRecord{
			{Mailbox: "100", Folder: "INBOX", MessageNum: 1},
			{Mailbox: "100", Folder: "INBOX", MessageNum: 2},
		},
		FetchedAt: time.Now(),
	}
	second := models.MailboxSnapshot{
		MailboxID: "100",
		Messages: []models.MessageRecord{
			{Mailbox: "100", Folder: "Old", MessageNum: 9},
		},
		FetchedAt: time.Now(),
	}

	// Act
	store.Set(first)
	store.Set(second)

	// Assert
	stored, ok := store.Get("100")
	require.True(t, ok)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, 9, stored.Messages[0].MessageNum)
}

func TestSnapshotStore_MailboxIDs(t *testing.T) {
	// Arrange
	store := NewSnapshotStore()
	store.Set(models.MailboxSnapshot{MailboxID: "100"})
	store.Set(models.MailboxSnapshot{MailboxID: "200"})

	// Act
	ids := store.MailboxIDs()

	// Assert
	assert.ElementsMatch(t, []string{"100", "200"}, ids)
}
