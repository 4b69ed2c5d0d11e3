package sync

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/openvoip/voicemailstack/config"
	"github.com/openvoip/voicemailstack/interfaces"
	"github.com/openvoip/voicemailstack/internal/enum"
	vmerrors "github.com/openvoip/voicemailstack/internal/errors"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/models"
	"github.com/openvoip/voicemailstack/internal/store"
	"github.com/openvoip/voicemailstack/internal/tracing"
	"github.com/openvoip/voicemailstack/internal/utils"
)

type Service struct {
	cfg       *config.Config
	client    interfaces.VoipmsClient
	publisher interfaces.StatePublisher
	store     *store.SnapshotStore
	log       logger.Logger

	mailboxes map[string]*models.Mailbox

	statuses    map[string]interfaces.MailboxStatus
	statusMutex sync.RWMutex

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSyncService(cfg *config.Config, client interfaces.VoipmsClient, publisher interfaces.StatePublisher, snapshots *store.SnapshotStore, log logger.Logger) interfaces.SyncService {
	return &Service{
		cfg:       cfg,
		client:    client,
		publisher: publisher,
		store:     snapshots,
		log:       log,
		mailboxes: make(map[string]*models.Mailbox),
		statuses:  make(map[string]interfaces.MailboxStatus),
	}
}

// Start resolves the mailbox set and spawns one poll worker per mailbox.
// The mailbox set is fixed for the process lifetime.
func (s *Service) Start(ctx context.Context) error {
	span, ctx := tracing.StartTracerSpan(ctx, "SyncService.Start")
	defer span.Finish()
	tracing.TagComponentService(span)

	s.ctx, s.cancel = context.WithCancel(ctx)

	mailboxes, err := s.resolveMailboxes(s.ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if len(mailboxes) == 0 {
		return errors.New("no mailboxes to monitor")
	}

	ids := make([]string, 0, len(mailboxes))
	for _, m := range mailboxes {
		ids = append(ids, m.ID)
	}
	s.log.Infof("Monitoring mailboxes: %s", utils.SliceToString(ids))

	for i := range mailboxes {
		mailbox := &mailboxes[i]
		s.mailboxes[mailbox.ID] = mailbox
		s.setStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {
			status.State = enum.SyncIdle
		})
		s.log.Infof("Starting mailbox worker: %s (%s)", mailbox.ID, mailbox.DisplayName())
		s.wg.Add(1)
		go s.runMailbox(s.ctx, mailbox)
	}

	return nil
}

// resolveMailboxes builds the monitored set from configuration, or from one
// provider discovery call when no ids are configured.
func (s *Service) resolveMailboxes(ctx context.Context) ([]models.Mailbox, error) {
	configured := s.cfg.VoipmsConfig.Mailboxes
	if len(configured) == 0 {
		s.log.Info("No mailboxes configured, discovering all from provider")
		return s.client.ListMailboxes(ctx)
	}

	discovered, err := s.client.ListMailboxes(ctx)
	if err != nil {
		// Discovery is only used here to pick up display names; the
		// configured ids are authoritative.
		s.log.Warnf("Mailbox discovery failed, using configured ids only: %v", err)
		discovered = nil
	}

	names := make(map[string]string, len(discovered))
	for _, m := range discovered {
		if !utils.IsStringInSlice(m.ID, configured) {
			s.log.Debugf("Ignoring unconfigured mailbox %s", m.ID)
			continue
		}
		names[m.ID] = m.Name
	}

	mailboxes := make([]models.Mailbox, 0, len(configured))
	for _, id := range configured {
		if id == "" {
			continue
		}
		mailboxes = append(mailboxes, models.Mailbox{
			ID:      id,
			Name:    names[id],
			Folders: s.cfg.VoipmsConfig.Folders,
		})
	}
	return mailboxes, nil
}

// Stop cancels all workers, waits out the shutdown grace period and marks
// every mailbox unavailable on the bus.
func (s *Service) Stop() error {
	s.log.Info("Stopping sync service...")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All mailbox workers stopped gracefully")
	case <-time.After(s.cfg.SyncConfig.ShutdownGrace):
		s.log.Warn("Timeout waiting for mailbox workers to stop")
	}

	// The root context is already cancelled; availability needs its own.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for id := range s.mailboxes {
		if err := s.publisher.PublishAvailability(ctx, id, enum.AvailabilityOffline); err != nil {
			s.log.Warnf("Failed to mark mailbox %s offline: %v", id, err)
		}
	}

	s.log.Info("Sync service stopped")
	return nil
}

// Status returns a copy of the per-mailbox sync status map.
func (s *Service) Status() map[string]interfaces.MailboxStatus {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()

	result := make(map[string]interfaces.MailboxStatus, len(s.statuses))
	for id, status := range s.statuses {
		result[id] = status
	}
	return result
}

// RepublishAll refreshes the retained discovery, state and availability
// topics from the stored snapshots. Used by the scheduled republish job to
// recover from a broker losing its retained messages.
func (s *Service) RepublishAll(ctx context.Context) {
	span, ctx := tracing.StartTracerSpan(ctx, "SyncService.RepublishAll")
	defer span.Finish()
	tracing.TagComponentService(span)

	for _, id := range s.store.MailboxIDs() {
		mailbox, ok := s.mailboxes[id]
		if !ok {
			continue
		}
		snapshot, ok := s.store.Get(id)
		if !ok {
			continue
		}
		if err := s.publisher.RepublishDiscovery(ctx, mailbox); err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("Discovery republish failed for mailbox %s: %v", id, err)
		}
		if err := s.publisher.PublishState(ctx, mailbox, snapshot); err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("Republish failed for mailbox %s: %v", id, err)
		}
		if s.mailboxState(id) != enum.SyncAuthFailed {
			if err := s.publisher.PublishAvailability(ctx, id, enum.AvailabilityOnline); err != nil {
				s.log.Warnf("Republish availability failed for mailbox %s: %v", id, err)
			}
		}
	}
}

// runMailbox is the poll loop for one mailbox: strictly sequential
// fetch/diff per mailbox, exponential backoff on transient failures, reset
// to the base poll interval after a success. AuthError is terminal.
func (s *Service) runMailbox(ctx context.Context, mailbox *models.Mailbox) {
	defer s.wg.Done()

	retry := &backoff.Backoff{
		Min:    s.cfg.SyncConfig.PollInterval,
		Max:    s.cfg.SyncConfig.MaxBackoff,
		Factor: 2,
	}

	// First poll runs immediately.
	var delay time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		err := s.pollOnce(ctx, mailbox)
		if ctx.Err() != nil {
			// Cancelled mid-tick: no events were emitted for it.
			return
		}

		switch {
		case err == nil:
			retry.Reset()
			delay = s.cfg.SyncConfig.PollInterval

		case vmerrors.IsAuth(err):
			s.log.Errorf("Mailbox %s: authentication failed, polling stopped: %v", mailbox.ID, err)
			s.setStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {
				status.State = enum.SyncAuthFailed
				status.LastError = err.Error()
			})
			if pubErr := s.publisher.PublishAvailability(ctx, mailbox.ID, enum.AvailabilityOffline); pubErr != nil {
				s.log.Warnf("Failed to mark mailbox %s offline: %v", mailbox.ID, pubErr)
			}
			return

		default:
			delay = retry.Duration()
			if hint, ok := vmerrors.IsRateLimited(err); ok && hint > delay {
				delay = hint
			}
			s.setStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {
				status.State = enum.SyncBackoff
				status.LastError = err.Error()
			})
			s.log.Warnf("Mailbox %s: poll failed, retrying in %v: %v", mailbox.ID, delay, err)
		}
	}
}

// pollOnce runs one Fetching/Diffing cycle for a mailbox. On success the
// stored snapshot is replaced wholesale and the resulting changes are
// handed to the publisher in diff order; on failure the previous snapshot
// stays untouched.
func (s *Service) pollOnce(ctx context.Context, mailbox *models.Mailbox) error {
	span, ctx := tracing.StartTracerSpan(ctx, "SyncService.pollOnce")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagMailbox(span, mailbox.ID)

	s.setStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {
		status.State = enum.SyncFetching
	})

	snapshot, err := s.client.ListMessages(ctx, mailbox)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.setStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {
		status.State = enum.SyncDiffing
	})

	previous, hadPrevious := s.store.Get(mailbox.ID)
	changes := Diff(previous, snapshot)
	s.store.Set(snapshot)

	if err := s.publisher.EnsureDiscovery(ctx, mailbox); err != nil {
		s.log.Warnf("Discovery publish failed for mailbox %s: %v", mailbox.ID, err)
	}

	for _, change := range changes {
		s.logChange(change)
	}

	if len(changes) > 0 || !hadPrevious {
		if err := s.publisher.PublishState(ctx, mailbox, snapshot); err != nil {
			// Bus failures never stop the poll loop; the retained state
			// is refreshed on the next change or the republish job.
			s.log.Warnf("State publish failed for mailbox %s: %v", mailbox.ID, err)
		}
	}

	if err := s.publisher.PublishAvailability(ctx, mailbox.ID, enum.AvailabilityOnline); err != nil {
		s.log.Warnf("Availability publish failed for mailbox %s: %v", mailbox.ID, err)
	}

	s.setStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {
		status.State = enum.SyncIdle
		status.LastError = ""
		status.LastPolled = time.Now()
		status.Total = snapshot.Total()
		status.Unlistened = snapshot.Unlistened()
	})

	return nil
}

func (s *Service) logChange(change models.StateChange) {
	switch change.Type {
	case enum.CountsChanged:
		s.log.Infof("Mailbox %s: counts changed, total=%d unlistened=%d", change.MailboxID, change.Total, change.Unlistened)
	default:
		if change.Record != nil {
			s.log.Infof("Mailbox %s: %s %s/%d (%s)", change.MailboxID, change.Type, change.Record.Folder, change.Record.MessageNum, change.Record.CallerID)
		}
	}
}

func (s *Service) setStatus(mailboxID string, update func(*interfaces.MailboxStatus)) {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()
	status := s.statuses[mailboxID]
	update(&status)
	s.statuses[mailboxID] = status
}

func (s *Service) mailboxState(mailboxID string) enum.SyncState {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.statuses[mailboxID].State
}
