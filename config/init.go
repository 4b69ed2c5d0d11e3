package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/tracing"
)

type Config struct {
	AppConfig    *AppConfig
	Logger       *logger.Config
	Tracing      *tracing.JaegerConfig
	VoipmsConfig *VoipmsConfig
	SyncConfig   *SyncConfig
	MQTTConfig   *MQTTConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:    &AppConfig{},
		Logger:       &logger.Config{},
		Tracing:      &tracing.JaegerConfig{},
		VoipmsConfig: &VoipmsConfig{},
		SyncConfig:   &SyncConfig{},
		MQTTConfig:   &MQTTConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	config.AppConfig.Logger = config.Logger
	config.AppConfig.Tracing = config.Tracing

	return config, nil
}
