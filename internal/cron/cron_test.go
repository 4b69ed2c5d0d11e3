package cron

import (
	"os"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"

	"github.com/openvoip/voicemailstack/config"
	cron_config "github.com/openvoip/voicemailstack/internal/cron/config"
	"github.com/openvoip/voicemailstack/internal/logger"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{
			Logger: &logger.Config{
				LogLevel: "info",
			},
		},
	}
	log := getLogger()

	// Act
	cm := NewCronManager(cfg, log, nil)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_StartCron(t *testing.T) {
	// Set environment variable for testing
	os.Setenv("CRON_SCHEDULE_HEARTBEAT", "0 * * * * *")
	os.Setenv("CRON_SCHEDULE_REPUBLISH", "0 0 */6 * * *")
	defer os.Unsetenv("CRON_SCHEDULE_HEARTBEAT")
	defer os.Unsetenv("CRON_SCHEDULE_REPUBLISH")

	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{
			Logger: &logger.Config{
				LogLevel: "info",
			},
		},
	}
	log := getLogger()
	cm := NewCronManager(cfg, log, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New(cronv3.WithSeconds())

	// Register jobs directly
	var cronConfig cron_config.Config
	cronConfig.CronScheduleHeartbeat = "0 * * * * *"
	cronConfig.CronScheduleRepublish = "0 0 */6 * * *"

	// Act - register jobs manually
	heartbeatId, err := mockCron.AddFunc(cronConfig.CronScheduleHeartbeat, func() {})
	assert.NoError(t, err)
	cm.jobIDs["heartbeat"] = heartbeatId

	republishId, err := mockCron.AddFunc(cronConfig.CronScheduleRepublish, func() {})
	assert.NoError(t, err)
	cm.jobIDs["republish"] = republishId

	cm.cron = mockCron

	// Assert
	assert.NotNil(t, cm.cron)
	assert.Equal(t, 2, len(cm.jobIDs))
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{
			Logger: &logger.Config{
				LogLevel: "info",
			},
		},
	}
	log := getLogger()
	cm := NewCronManager(cfg, log, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New(cronv3.WithSeconds())
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
