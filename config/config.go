package config

import (
	"time"

	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/tracing"
)

type AppConfig struct {
	APIPort       string `env:"PORT" envDefault:"8099"`
	APIKey        string `env:"API_KEY"`
	PublicBaseURL string `env:"AUDIO_PUBLIC_URL"`
	Logger        *logger.Config
	Tracing       *tracing.JaegerConfig
}

type VoipmsConfig struct {
	APIURL             string        `env:"VOIPMS_API_URL" envDefault:"https://voip.ms/api/v1/rest.php"`
	Username           string        `env:"VOIPMS_USERNAME,required"`
	APIPassword        string        `env:"VOIPMS_API_PASSWORD,required"`
	Mailboxes          []string      `env:"VOIPMS_MAILBOXES" envSeparator:","`
	Folders            []string      `env:"VOIPMS_FOLDERS" envSeparator:"," envDefault:"INBOX,Urgent,Old"`
	MinRequestInterval time.Duration `env:"VOIPMS_MIN_REQUEST_INTERVAL" envDefault:"1s"`
	RequestTimeout     time.Duration `env:"VOIPMS_REQUEST_TIMEOUT" envDefault:"30s"`
}

type SyncConfig struct {
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	MaxBackoff    time.Duration `env:"MAX_BACKOFF" envDefault:"10m"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
}

type MQTTConfig struct {
	Host            string        `env:"MQTT_HOST" envDefault:"core-mosquitto"`
	Port            int           `env:"MQTT_PORT" envDefault:"1883"`
	Username        string        `env:"MQTT_USERNAME"`
	Password        string        `env:"MQTT_PASSWORD"`
	DiscoveryPrefix string        `env:"MQTT_DISCOVERY_PREFIX" envDefault:"homeassistant"`
	StatePrefix     string        `env:"MQTT_STATE_PREFIX" envDefault:"voipms"`
	PublishTimeout  time.Duration `env:"MQTT_PUBLISH_TIMEOUT" envDefault:"5s"`
}
