package models

import (
	"time"
)

// MessageKey is the composite key of a message within one mailbox snapshot.
// Message numbers are provider-assigned and never reused within a folder
// while the message exists.
type MessageKey struct {
	Folder     string
	MessageNum int
}

// MessageRecord is one voicemail message as observed at a poll tick.
type MessageRecord struct {
	Mailbox    string    `json:"mailbox"`
	Folder     string    `json:"folder"`
	MessageNum int       `json:"message_num"`
	CallerID   string    `json:"callerid"`
	Date       time.Time `json:"date"`
	Duration   int       `json:"duration"`
	Listened   bool      `json:"listened"`
	Urgent     bool      `json:"urgent"`
	Size       int64     `json:"size"`
}

func (m MessageRecord) Key() MessageKey {
	return MessageKey{Folder: m.Folder, MessageNum: m.MessageNum}
}

func (m MessageRecord) AudioReference() AudioReference {
	return AudioReference{Mailbox: m.Mailbox, Folder: m.Folder, MessageNum: m.MessageNum}
}

// MailboxSnapshot is the complete ordered message set observed for one
// mailbox at one poll tick. Snapshots are replaced wholesale on each
// successful poll; a failed poll leaves the previous snapshot untouched.
type MailboxSnapshot struct {
	MailboxID string          `json:"mailbox_id"`
	Messages  []MessageRecord `json:"messages"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (s MailboxSnapshot) Total() int {
	return len(s.Messages)
}

// Unlistened is computed fresh from the records on every call, never
// maintained incrementally, so the count cannot drift from missed events.
func (s MailboxSnapshot) Unlistened() int {
	count := 0
	for _, m := range s.Messages {
		if !m.Listened {
			count++
		}
	}
	return count
}

// Index returns the snapshot records keyed by composite message key.
func (s MailboxSnapshot) Index() map[MessageKey]MessageRecord {
	index := make(map[MessageKey]MessageRecord, len(s.Messages))
	for _, m := range s.Messages {
		index[m.Key()] = m
	}
	return index
}
