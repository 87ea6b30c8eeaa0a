package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/avoskresensky/fieldsync/internal/flagx"
	"github.com/avoskresensky/fieldsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// rely on timex.Duration so the file can specify "30s" or integer
// nanoseconds. Absent fields keep their earlier value.
type JsonConfig struct {
	APIBaseURL          string          `json:"api_base_url"`
	DatabasePath        string          `json:"database_path"`
	CacheDir            string          `json:"cache_dir"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	GracePeriod         *timex.Duration `json:"grace_period"`
	PendingBatchSize    *int            `json:"pending_batch_size"`
	LinkAfterRefresh    *bool           `json:"link_after_refresh"`
}

// parseJSON overlays cfg with values from the file named by -c/-config.
// No flag means no JSON source and is not an error.
func parseJSON(cfg *Config) error {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.CacheDir != "" {
		cfg.CacheDir = jc.CacheDir
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.GracePeriod != nil {
		cfg.GracePeriod = time.Duration(jc.GracePeriod.Duration)
	}
	if jc.PendingBatchSize != nil {
		cfg.PendingBatchSize = *jc.PendingBatchSize
	}
	if jc.LinkAfterRefresh != nil {
		cfg.LinkAfterRefresh = *jc.LinkAfterRefresh
	}
	return nil
}
