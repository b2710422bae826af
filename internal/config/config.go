package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"localhost"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"bookmarks"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"bookmarks"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	SummaryModel   string `envconfig:"SUMMARY_MODEL" default:"gemini-2.0-flash"`
	EmbeddingDim   int    `envconfig:"EMBEDDING_DIM" default:"768"`

	WorkerCount int `envconfig:"WORKER_COUNT" default:"4"`
	QueueSize   int `envconfig:"QUEUE_SIZE" default:"256"`
	BatchWidth  int `envconfig:"BATCH_WIDTH" default:"10"`
	SearchLimit int `envconfig:"SEARCH_LIMIT" default:"10"`

	FetchTimeoutSeconds int   `envconfig:"FETCH_TIMEOUT_SECONDS" default:"30"`
	FetchMaxBytes       int64 `envconfig:"FETCH_MAX_BYTES" default:"10485760"` // 10MB

	// Optional broker-backed task handoff; the in-process pool is the default.
	EnableNSQ  bool   `envconfig:"ENABLE_NSQ" default:"false"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`

	RequireAuth bool `envconfig:"REQUIRE_AUTH" default:"false"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell instead; a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
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
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIM", ErrMissingRequired)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: WORKER_COUNT", ErrMissingRequired)
	}
	return nil
}
