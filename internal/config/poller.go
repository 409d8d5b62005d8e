package config

import (
	"time"
)

const (
	defaultProviderCheckInterval = 30 * time.Second
	defaultStoreFlushInterval    = 5 * time.Minute
)

type PollerConfig struct {
	ProviderCheckInterval time.Duration `mapstructure:"provider-check-interval"`
	StoreFlushInterval    time.Duration `mapstructure:"store-flush-interval"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.ProviderCheckInterval <= 0 {
		cfg.ProviderCheckInterval = defaultProviderCheckInterval
	}

	if cfg.StoreFlushInterval <= 0 {
		cfg.StoreFlushInterval = defaultStoreFlushInterval
	}

	return nil
}
