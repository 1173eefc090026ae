package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"pagebrief"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"pagebrief"`

	ElasticURL   string `envconfig:"ELASTIC_URL" default:"http://elasticsearch:9200"`
	ElasticIndex string `envconfig:"ELASTIC_INDEX" default:"passages"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`

	AuthVerifyURL string `envconfig:"AUTH_VERIFY_URL"`

	// Result artifact prefixes in the object store.
	VisionResultPrefix string `envconfig:"VISION_RESULT_PREFIX" default:"vision-results"`
	SpeechResultPrefix string `envconfig:"SPEECH_RESULT_PREFIX" default:"transcribe-results"`

	// Content store behaviour.
	StalenessWindowDays int `envconfig:"STALENESS_WINDOW_DAYS" default:"7"`
	MaxChunkSize        int `envconfig:"MAX_CHUNK_SIZE" default:"5000"`

	// Poll orchestration.
	PollMaxRetries      int `envconfig:"POLL_MAX_RETRIES" default:"5"`
	PollBaseWaitSeconds int `envconfig:"POLL_BASE_WAIT_SECONDS" default:"5"`
	PollIntervalSeconds int `envconfig:"POLL_INTERVAL_SECONDS" default:"10"`
	PollCeilingSeconds  int `envconfig:"POLL_CEILING_SECONDS" default:"120"`

	// Server
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.ElasticURL == "" {
		return fmt.Errorf("%w: ELASTIC_URL", ErrMissingRequired)
	}
	if c.PollMaxRetries <= 0 {
		return fmt.Errorf("%w: POLL_MAX_RETRIES must be positive", ErrMissingRequired)
	}
	return nil
}

func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.StalenessWindowDays) * 24 * time.Hour
}

func (c *Config) PollBaseWait() time.Duration {
	return time.Duration(c.PollBaseWaitSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) PollCeiling() time.Duration {
	return time.Duration(c.PollCeilingSeconds) * time.Second
}
