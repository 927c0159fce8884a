package scheduler

import (
	"time"

	"github.com/smallbiznis/hisaab/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	// DueBatchSize caps how many due reminders a single tick reports.
	DueBatchSize int
	// EnabledJobs limits the loop to the named jobs. Empty runs all of them.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		RunInterval:  5 * time.Minute,
		JobTimeout:   30 * time.Second,
		DueBatchSize: 200,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.SchedulerEnabled,
		RunInterval: cfg.SchedulerInterval,
		EnabledJobs: cfg.SchedulerJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.DueBatchSize <= 0 {
		c.DueBatchSize = defaults.DueBatchSize
	}
	return c
}
