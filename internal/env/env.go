package env

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Cfg struct {
	APIBaseURL     string        `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	LoadAttempts   uint          `envconfig:"LOAD_ATTEMPTS" default:"3"`
	LoadRetryDelay time.Duration `envconfig:"LOAD_RETRY_DELAY" default:"500ms"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`

	RedisHost string `envconfig:"REDIS_HOST"`
	RedisPass string `envconfig:"REDIS_PASSWORD"`
	RedisPort int    `envconfig:"REDIS_PORT" default:"6379"`

	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"8h"`

	SubmitTimeout                time.Duration `envconfig:"SUBMIT_TIMEOUT" default:"15s"`
	ClearDestinationOnTypeChange bool          `envconfig:"CLEAR_DESTINATION_ON_TYPE_CHANGE" default:"false"`

	MQUser string `envconfig:"MQ_USER" default:"guest"`
	MQPass string `envconfig:"MQ_PASSWORD" default:"guest"`
	MQHost string `envconfig:"MQ_HOST"`
	MQPort int    `envconfig:"MQ_PORT" default:"5672"`
}

func GetEnvCfg() (Cfg, error) {
	var cfg Cfg

	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	if err := envconfig.Process("APP", &cfg); err != nil {
		return Cfg{}, errors.Wrap(err, "parse environment variables")
	}

	return cfg, nil
}

func (c Cfg) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c Cfg) MQEnabled() bool {
	return c.MQHost != ""
}
