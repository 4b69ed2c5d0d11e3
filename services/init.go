package services

import (
	"github.com/openvoip/voicemailstack/config"
	"github.com/openvoip/voicemailstack/interfaces"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/store"
	"github.com/openvoip/voicemailstack/services/mqtt"
	"github.com/openvoip/voicemailstack/services/sync"
	"github.com/openvoip/voicemailstack/services/voipms"
)

type Services struct {
	VoipmsClient  interfaces.VoipmsClient
	Publisher     interfaces.StatePublisher
	SyncService   interfaces.SyncService
	SnapshotStore *store.SnapshotStore
}

func InitServices(cfg *config.Config, audioBaseURL string, log logger.Logger) (*Services, error) {
	client := voipms.NewClient(cfg.VoipmsConfig, log)
	publisher := mqtt.NewPublisher(cfg.MQTTConfig, audioBaseURL, log)
	snapshots := store.NewSnapshotStore()

	services := Services{
		VoipmsClient:  client,
		Publisher:     publisher,
		SyncService:   sync.NewSyncService(cfg, client, publisher, snapshots, log),
		SnapshotStore: snapshots,
	}

	return &services, nil
}
