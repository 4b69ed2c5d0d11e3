package cron

import (
	"context"
	"sync"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/openvoip/voicemailstack/config"
	"github.com/openvoip/voicemailstack/interfaces"
	cron_config "github.com/openvoip/voicemailstack/internal/cron/config"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/tracing"
)

// CONSTANTS
const (
	// GroupVoicemail is the group for voicemail related jobs
	GroupVoicemail = "voicemail"
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupVoicemail: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg    *config.Config
	log    logger.Logger
	cron   *cronv3.Cron
	stopCh chan struct{}
	jobIDs map[string]cronv3.EntryID
	sync   interfaces.SyncService
}

func NewCronManager(cfg *config.Config, log logger.Logger, syncService interfaces.SyncService) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		sync:   syncService,
	}
}

// Start initializes and starts the cron manager. The addon runs as a single
// supervised process, so there is no leader election here.
func (cm *CronManager) Start() {
	cm.StartCron()
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	// Register heartbeat job
	if cronConfig.CronScheduleHeartbeat != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Debugf("Cron heartbeat")
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	// Add republish job refreshing retained discovery/state topics
	if cronConfig.CronScheduleRepublish != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleRepublish, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupVoicemail].Lock()
			defer jobLocks.locks[GroupVoicemail].Unlock()
			cm.republishRetainedState()
		})
		if err != nil {
			cm.log.Fatalf("Could not add republish cron job: %v", err)
		}
		cm.jobIDs["republish"] = id
		cm.log.Infof("Registered republish job with schedule: %s", cronConfig.CronScheduleRepublish)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) republishRetainedState() {
	cm.log.Info("Running retained state republish")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.republishRetainedState")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	cm.sync.RepublishAll(ctx)

	cm.log.Info("Completed retained state republish")
}
