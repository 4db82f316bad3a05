package internal

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Corpus CorpusConfig      `yaml:"corpus"`
	State  StateConfig       `yaml:"state"`
	Store  StoreConfig       `yaml:"store"`
	Sync   SyncConfig        `yaml:"sync"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Corpus.Validate(); err != nil {
		return err
	}
	if err := c.State.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Sync.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// CorpusConfig holds the path to the Markdown content directory.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the corpus configuration.
func (c *CorpusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StateConfig holds the sync-state SQLite database path.
type StateConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StoreConfig holds the CMS API binding. Token normally arrives through
// environment expansion in the config file (e.g. "${RAIDO_CMS_TOKEN}").
type StoreConfig struct {
	BaseURL      string  `yaml:"base_url"`
	Token        string  `yaml:"token"`
	CollectionID string  `yaml:"collection_id"`
	RatePerSec   float64 `yaml:"rate_per_sec"`
	Burst        int     `yaml:"burst"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.CollectionID, validation.Required),
		validation.Field(&c.RatePerSec, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// SyncConfig holds the reconciliation policy knobs.
type SyncConfig struct {
	// Concurrency bounds parallel document processing. 1 is the safe
	// default: the store enforces a global rate limit, so parallelism
	// mostly buys rate-limit violations.
	Concurrency int `yaml:"concurrency"`
	// MaxAttempts bounds retries of transient store errors per document.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialBackoffMS is the first retry delay; it doubles per attempt.
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1), validation.Max(16)),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.InitialBackoffMS, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Corpus: CorpusConfig{
			Path: "./content",
		},
		State: StateConfig{
			Path: "./raido.db",
		},
		Store: StoreConfig{
			RatePerSec: 1,
			Burst:      2,
		},
		Sync: SyncConfig{
			Concurrency:      1,
			MaxAttempts:      3,
			InitialBackoffMS: 1000,
		},
	}
}
