// internal/workers/petition/reconcile-finances/config.go
package reconcilefinances

import (
	"fmt"
	"time"

	"petition-workers/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// ThrowOnInsufficient throws a BPMN error instead of completing the job
	// when the funds cannot support a letter.
	ThrowOnInsufficient bool `mapstructure:"throw_on_insufficient"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:             true,
		MaxJobsActive:       10,
		Timeout:             10 * time.Second,
		ThrowOnInsufficient: true,
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
		c.ThrowOnInsufficient = *wc.ThrowOnError
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
