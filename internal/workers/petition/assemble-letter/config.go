// internal/workers/petition/assemble-letter/config.go
package assembleletter

import (
	"fmt"
	"time"

	"petition-workers/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// ThrowOnBlocked throws the blocking reason as a BPMN error instead of
	// completing the job with final=false.
	ThrowOnBlocked bool `mapstructure:"throw_on_blocked"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 4,
		Timeout:       120 * time.Second,
	}
}

// FromWorkerConfig overlays the shared worker settings on the defaults.
func FromWorkerConfig(wc config.WorkerConfig) *Config {
	c := DefaultConfig()
	c.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		c.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	if wc.ThrowOnError != nil {
		c.ThrowOnBlocked = *wc.ThrowOnError
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
