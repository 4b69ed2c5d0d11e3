package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openvoip/voicemailstack/config"
	"github.com/openvoip/voicemailstack/dto"
	"github.com/openvoip/voicemailstack/interfaces"
	"github.com/openvoip/voicemailstack/internal/enum"
	vmerrors "github.com/openvoip/voicemailstack/internal/errors"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/models"
	"github.com/openvoip/voicemailstack/internal/tracing"
	"github.com/openvoip/voicemailstack/internal/utils"
)

const (
	publishQoS     = 1
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Publisher maps mailbox snapshots onto retained MQTT topics. Discovery
// descriptors are published once per mailbox per process run; a bus
// reconnect republishes them for every already-announced mailbox.
type Publisher struct {
	cfg          *config.MQTTConfig
	log          logger.Logger
	client       pahomqtt.Client
	topics       Topics
	audioBaseURL string

	mu           sync.Mutex
	announced    map[string]*models.Mailbox
	availability map[string]enum.Availability
}

func NewPublisher(cfg *config.MQTTConfig, audioBaseURL string, log logger.Logger) *Publisher {
	p := &Publisher{
		cfg:          cfg,
		log:          log,
		audioBaseURL: audioBaseURL,
		topics: Topics{
			DiscoveryPrefix: cfg.DiscoveryPrefix,
			StatePrefix:     cfg.StatePrefix,
		},
		announced:    make(map[string]*models.Mailbox),
		availability: make(map[string]enum.Availability),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(utils.GenerateIdWithPrefix("voicemailstack", 8)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	p.client = pahomqtt.NewClient(opts)
	return p
}

var _ interfaces.StatePublisher = (*Publisher)(nil)

func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		return vmerrors.ErrConnectionTimeout
	}
	return token.Error()
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) onConnect(_ pahomqtt.Client) {
	p.log.Info("Connected to MQTT broker")

	// Retained discovery and availability may have been lost while
	// disconnected; announce every known mailbox again.
	mailboxes, availability := p.reconnectTargets()

	for _, mailbox := range mailboxes {
		if err := p.publishDiscovery(mailbox); err != nil {
			p.log.Warnf("Discovery republish failed for mailbox %s: %v", mailbox.ID, err)
		}
	}
	for id, a := range availability {
		if err := p.publish(p.topics.Availability(id), []byte(a.String())); err != nil {
			p.log.Warnf("Availability republish failed for mailbox %s: %v", id, err)
		}
	}
}

// reconnectTargets snapshots what a fresh broker session needs republished:
// every announced mailbox and the last availability written per mailbox.
func (p *Publisher) reconnectTargets() ([]*models.Mailbox, map[string]enum.Availability) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mailboxes := make([]*models.Mailbox, 0, len(p.announced))
	for _, m := range p.announced {
		mailboxes = append(mailboxes, m)
	}
	availability := make(map[string]enum.Availability, len(p.availability))
	for id, a := range p.availability {
		availability[id] = a
	}
	return mailboxes, availability
}

func (p *Publisher) onConnectionLost(_ pahomqtt.Client, err error) {
	p.log.Warnf("Lost connection to MQTT broker: %v", err)
}

func (p *Publisher) EnsureDiscovery(ctx context.Context, mailbox *models.Mailbox) error {
	if !p.markAnnounced(mailbox) {
		return nil
	}

	span, _ := tracing.StartTracerSpan(ctx, "Publisher.EnsureDiscovery")
	defer span.Finish()
	tracing.TagComponentPublisher(span)
	tracing.TagMailbox(span, mailbox.ID)

	if err := p.publishDiscovery(mailbox); err != nil {
		tracing.TraceErr(span, err)
		p.forgetAnnounced(mailbox.ID)
		return err
	}

	p.log.Infof("Published discovery config for mailbox %s", mailbox.ID)
	return nil
}

// RepublishDiscovery re-announces a mailbox unconditionally. The broker may
// have lost the retained config topic (restart without persistence), so the
// announced-once guard does not apply here.
func (p *Publisher) RepublishDiscovery(ctx context.Context, mailbox *models.Mailbox) error {
	span, _ := tracing.StartTracerSpan(ctx, "Publisher.RepublishDiscovery")
	defer span.Finish()
	tracing.TagComponentPublisher(span)
	tracing.TagMailbox(span, mailbox.ID)

	p.markAnnounced(mailbox)

	if err := p.publishDiscovery(mailbox); err != nil {
		tracing.TraceErr(span, err)
		p.forgetAnnounced(mailbox.ID)
		return err
	}
	return nil
}

// markAnnounced records the mailbox as announced and reports whether this
// call was the first announcement for it this process run.
func (p *Publisher) markAnnounced(mailbox *models.Mailbox) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, done := p.announced[mailbox.ID]; done {
		return false
	}
	p.announced[mailbox.ID] = mailbox
	return true
}

// forgetAnnounced drops the announcement so the next tick retries it.
func (p *Publisher) forgetAnnounced(mailboxID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.announced, mailboxID)
}

func (p *Publisher) publishDiscovery(mailbox *models.Mailbox) error {
	body, err := json.Marshal(p.discoveryPayload(mailbox))
	if err != nil {
		return err
	}
	return p.publish(p.topics.Discovery(mailbox.ID), body)
}

func (p *Publisher) discoveryPayload(mailbox *models.Mailbox) dto.DiscoveryConfig {
	return dto.DiscoveryConfig{
		Name:                mailbox.DisplayName(),
		UniqueID:            p.topics.ObjectID(mailbox.ID),
		StateTopic:          p.topics.State(mailbox.ID),
		JSONAttributesTopic: p.topics.Attributes(mailbox.ID),
		AvailabilityTopic:   p.topics.Availability(mailbox.ID),
		PayloadAvailable:    enum.AvailabilityOnline.String(),
		PayloadNotAvailable: enum.AvailabilityOffline.String(),
		Icon:                "mdi:voicemail",
		UnitOfMeasurement:   "messages",
		Device: dto.DeviceInfo{
			Identifiers:  []string{fmt.Sprintf("%s_%s", p.cfg.StatePrefix, mailbox.ID)},
			Name:         fmt.Sprintf("VoIP.ms Mailbox %s", mailbox.ID),
			Manufacturer: "VoIP.ms",
			Model:        "Voicemail",
		},
	}
}

func (p *Publisher) PublishState(ctx context.Context, mailbox *models.Mailbox, snapshot models.MailboxSnapshot) error {
	span, _ := tracing.StartTracerSpan(ctx, "Publisher.PublishState")
	defer span.Finish()
	tracing.TagComponentPublisher(span)
	tracing.TagMailbox(span, mailbox.ID)

	attributes := p.stateAttributes(snapshot)

	body, err := json.Marshal(attributes)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if err := p.publish(p.topics.State(mailbox.ID), []byte(strconv.Itoa(attributes.NewMessages))); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := p.publish(p.topics.Attributes(mailbox.ID), body); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	p.log.Debugf("Published state for mailbox %s: %d new, %d total", mailbox.ID, attributes.NewMessages, attributes.TotalMessages)
	return nil
}

func (p *Publisher) stateAttributes(snapshot models.MailboxSnapshot) dto.StateAttributes {
	attributes := dto.StateAttributes{
		TotalMessages: snapshot.Total(),
		NewMessages:   snapshot.Unlistened(),
		Messages:      make([]dto.MessageAttributes, 0, len(snapshot.Messages)),
	}
	for _, m := range snapshot.Messages {
		date := ""
		if !m.Date.IsZero() {
			date = m.Date.Format(dateTimeLayout)
		}
		attributes.Messages = append(attributes.Messages, dto.MessageAttributes{
			Folder:     m.Folder,
			MessageNum: m.MessageNum,
			CallerID:   m.CallerID,
			Date:       date,
			Duration:   m.Duration,
			Listened:   m.Listened,
			Urgent:     m.Urgent,
			AudioURL:   fmt.Sprintf("%s/audio/%s", p.audioBaseURL, m.AudioReference().Encode()),
		})
	}
	return attributes
}

func (p *Publisher) PublishAvailability(ctx context.Context, mailboxID string, availability enum.Availability) error {
	span, _ := tracing.StartTracerSpan(ctx, "Publisher.PublishAvailability")
	defer span.Finish()
	tracing.TagComponentPublisher(span)
	tracing.TagMailbox(span, mailboxID)

	if err := p.publish(p.topics.Availability(mailboxID), []byte(availability.String())); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	p.mu.Lock()
	p.availability[mailboxID] = availability
	p.mu.Unlock()
	return nil
}

// publish sends one retained message with a bounded wait. A slow or
// disconnected broker drops the payload here with an error for the caller
// to log; the poll loop must never block on the bus.
func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, publishQoS, true, payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		return vmerrors.ErrConnectionTimeout
	}
	return token.Error()
}
