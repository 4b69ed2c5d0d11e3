package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvoip/voicemailstack/config"
	"github.com/openvoip/voicemailstack/internal/enum"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/models"
)

func testPublisher() *Publisher {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()

	return NewPublisher(&config.MQTTConfig{
		Host:            "localhost",
		Port:            1883,
		DiscoveryPrefix: "homeassistant",
		StatePrefix:     "voipms",
		PublishTimeout:  time.Second,
	}, "http://bridge:8099", appLogger)
}

func TestPublisher_DiscoveryPayload(t *testing.T) {
	// Arrange
	p := testPublisher()
	mailbox := &models.Mailbox{ID: "12345", Name: "Home"}

	// Act
	payload := p.discoveryPayload(mailbox)

	// Assert
	assert.Equal(t, "Home", payload.Name)
	assert.Equal(t, "voipms_voicemail_12345", payload.UniqueID)
	assert.Equal(t, "voipms/12345/state", payload.StateTopic)
	assert.Equal(t, "voipms/12345/attributes", payload.JSONAttributesTopic)
	assert.Equal(t, "voipms/12345/availability", payload.AvailabilityTopic)
	assert.Equal(t, "online", payload.PayloadAvailable)
	assert.Equal(t, "offline", payload.PayloadNotAvailable)
	assert.Equal(t, "mdi:voicemail", payload.Icon)
	assert.Equal(t, []string{"voipms_12345"}, payload.Device.Identifiers)
}

func TestPublisher_DiscoveryPayloadFallbackName(t *testing.T) {
	// Arrange: provider discovery may not supply a display name
	p := testPublisher()
	mailbox := &models.Mailbox{ID: "12345"}

	// Act
	payload := p.discoveryPayload(mailbox)

	// Assert
	assert.Equal(t, "Voicemail 12345", payload.Name)
}

func TestPublisher_DiscoveryAnnouncedOncePerRun(t *testing.T) {
	// Arrange
	p := testPublisher()
	mailbox := &models.Mailbox{ID: "12345"}

	// Act / Assert: only the first call publishes
	assert.True(t, p.markAnnounced(mailbox))
	assert.False(t, p.markAnnounced(mailbox))
	assert.False(t, p.markAnnounced(mailbox))

	// A failed publish forgets the announcement so the next tick retries
	p.forgetAnnounced(mailbox.ID)
	assert.True(t, p.markAnnounced(mailbox))
}

func TestPublisher_ReconnectTargets(t *testing.T) {
	// Arrange: two mailboxes announced during normal polling, one of them
	// already marked offline by a terminal auth failure
	p := testPublisher()
	home := &models.Mailbox{ID: "100", Name: "Home"}
	office := &models.Mailbox{ID: "200", Name: "Office"}
	p.markAnnounced(home)
	p.markAnnounced(office)

	p.mu.Lock()
	p.availability["100"] = enum.AvailabilityOnline
	p.availability["200"] = enum.AvailabilityOffline
	p.mu.Unlock()

	// Act
	mailboxes, availability := p.reconnectTargets()

	// Assert: a fresh broker session republishes both announcements and
	// the last written availability per mailbox
	require.Len(t, mailboxes, 2)
	ids := []string{mailboxes[0].ID, mailboxes[1].ID}
	assert.ElementsMatch(t, []string{"100", "200"}, ids)

	assert.Equal(t, enum.AvailabilityOnline, availability["100"])
	assert.Equal(t, enum.AvailabilityOffline, availability["200"])
}

func TestPublisher_ReconnectTargetsBeforeFirstAnnounce(t *testing.T) {
	// Arrange
	p := testPublisher()

	// Act
	mailboxes, availability := p.reconnectTargets()

	// Assert: nothing to republish before the first poll succeeds
	assert.Empty(t, mailboxes)
	assert.Empty(t, availability)
}

func TestPublisher_StateAttributes(t *testing.T) {
	// Arrange
	p := testPublisher()
	snapshot := models.MailboxSnapshot{
		MailboxID: "12345",
		Messages: []models.MessageRecord{
			{
				Mailbox:    "12345",
				Folder:     "INBOX",
				MessageNum: 1,
				CallerID:   "5551234567",
				Date:       time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
				Duration:   42,
				Listened:   false,
			},
			{
				Mailbox:    "12345",
				Folder:     "Old",
				MessageNum: 7,
				CallerID:   "5557654321",
				Listened:   true,
			},
		},
	}

	// Act
	attributes := p.stateAttributes(snapshot)

	// Assert
	assert.Equal(t, 2, attributes.TotalMessages)
	assert.Equal(t, 1, attributes.NewMessages)
	require.Len(t, attributes.Messages, 2)

	first := attributes.Messages[0]
	assert.Equal(t, "INBOX", first.Folder)
	assert.Equal(t, "2026-08-20 10:30:00", first.Date)
	assert.Equal(t, 42, first.Duration)

	ref := models.AudioReference{Mailbox: "12345", Folder: "INBOX", MessageNum: 1}
	assert.Equal(t, "http://bridge:8099/audio/"+ref.Encode(), first.AudioURL)

	// A zero timestamp publishes as an empty string, not a zero date
	assert.Empty(t, attributes.Messages[1].Date)
}
