// Package config loads runtime settings for the fieldsync CLI and engine.
// Values come from defaults, then an optional JSON file, then command-line
// flags; later sources take precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the sync engine.
type Config struct {
	// APIBaseURL is the base URL of the remote system of record.
	APIBaseURL string `validate:"required,url"`

	// DatabasePath is the SQLite replica location.
	DatabasePath string `validate:"required"`

	// CacheDir holds locally cached image artifacts; empty disables the cache.
	CacheDir string

	// OnlineCheckInterval is the connectivity probe cadence.
	OnlineCheckInterval time.Duration `validate:"gt=0"`

	// RequestTimeout bounds one remote round-trip.
	RequestTimeout time.Duration `validate:"gt=0"`

	// GracePeriod is the reconciliation deletion window: a record whose
	// last sync is older than this is never deleted by reconciliation.
	GracePeriod time.Duration `validate:"gt=0"`

	// PendingBatchSize bounds concurrent remote calls in one pending flush.
	PendingBatchSize int `validate:"gt=0"`

	// LinkAfterRefresh re-runs the relationship linker after a background
	// refresh. Off by default: refresh pulls are scoped and links from the
	// last full pass remain mostly valid.
	LinkAfterRefresh bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080/api/v1"
	c.DatabasePath = "fieldsync.db"
	c.CacheDir = ""
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.GracePeriod = 30 * 24 * time.Hour
	c.PendingBatchSize = 10
	c.LinkAfterRefresh = false
}

// Load constructs a Config, applies defaults, overlays JSON and flags, and
// validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
