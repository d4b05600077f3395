package runner

import (
	"time"

	appconfig "github.com/fleetworks/odometer/internal/config"
)

// Config is the runner's resolved operating parameters.
type Config struct {
	RunInterval time.Duration
	Concurrency int
	OrgTimeout  time.Duration
	LockTTL     time.Duration
}

func configFrom(cfg appconfig.Config) Config {
	return Config{
		RunInterval: cfg.Aggregator.RunInterval,
		Concurrency: cfg.Aggregator.Concurrency,
		OrgTimeout:  cfg.Aggregator.OrgTimeout,
		LockTTL:     cfg.Aggregator.LockTTL,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = 4 * time.Hour
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.OrgTimeout <= 0 {
		c.OrgTimeout = time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Minute
	}
	return c
}
