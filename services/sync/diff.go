package sync

import (
	"github.com/openvoip/voicemailstack/internal/enum"
	"github.com/openvoip/voicemailstack/internal/models"
)

// Diff compares two consecutive snapshots of one mailbox by composite
// message key and returns the state changes in a deterministic order:
// additions (snapshot order), removals, listened flips, and finally one
// CountsChanged when the message set or the derived counts differ.
// Diffing a snapshot against itself yields no changes.
func Diff(prev, next models.MailboxSnapshot) []models.StateChange {
	prevIndex := prev.Index()
	nextIndex := next.Index()

	var changes []models.StateChange
	setDiffers := false

	for _, m := range next.Messages {
		if _, ok := prevIndex[m.Key()]; !ok {
			record := m
			changes = append(changes, models.StateChange{
				Type:      enum.MessageAdded,
				MailboxID: next.MailboxID,
				Record:    &record,
			})
			setDiffers = true
		}
	}

	for _, m := range prev.Messages {
		if _, ok := nextIndex[m.Key()]; !ok {
			record := m
			changes = append(changes, models.StateChange{
				Type:      enum.MessageRemoved,
				MailboxID: next.MailboxID,
				Record:    &record,
			})
			setDiffers = true
		}
	}

	for _, m := range next.Messages {
		if old, ok := prevIndex[m.Key()]; ok && old.Listened != m.Listened {
			record := m
			changes = append(changes, models.StateChange{
				Type:      enum.ListenedStatusChanged,
				MailboxID: next.MailboxID,
				Record:    &record,
			})
		}
	}

	// CountsChanged fires whenever the set differs, not only when the
	// arithmetic does: an external delete plus add can net to zero while
	// the composition changed.
	if setDiffers || prev.Total() != next.Total() || prev.Unlistened() != next.Unlistened() {
		changes = append(changes, models.StateChange{
			Type:       enum.CountsChanged,
			MailboxID:  next.MailboxID,
			Total:      next.Total(),
			Unlistened: next.Unlistened(),
		})
	}

	return changes
}
