package config

import (
	"fmt"
	"time"
)

const (
	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"

	defaultStoreMaxRetryTimes = 3
	defaultStoreRetryInterval = 500 * time.Millisecond
)

// StoreConfig configures where participant records live and how failed
// writes are retried.
type StoreConfig struct {
	Backend       string        `mapstructure:"backend"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (cfg *StoreConfig) Validate() error {
	switch cfg.Backend {
	case StoreBackendMongo, StoreBackendMemory:
	case "":
		cfg.Backend = StoreBackendMongo
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.MaxRetryTimes == 0 {
		cfg.MaxRetryTimes = defaultStoreMaxRetryTimes
	}

	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultStoreRetryInterval
	}

	return nil
}
