package config

import (
	"errors"
	"time"
)

type TeleportConfig struct {
	// Range is the strict search radius in blocks around the origin.
	Range          int           `mapstructure:"range"`
	CountdownTicks int           `mapstructure:"countdown-ticks"`
	TickInterval   time.Duration `mapstructure:"tick-interval"`
	BuffDuration   time.Duration `mapstructure:"buff-duration"`
	BuffLevel      int           `mapstructure:"buff-level"`
}

func (cfg *TeleportConfig) Validate() error {
	if cfg.Range <= 0 {
		return errors.New("range must be positive")
	}

	if cfg.CountdownTicks < 0 {
		return errors.New("countdown-ticks must not be negative")
	}

	if cfg.TickInterval <= 0 {
		return errors.New("tick-interval must be positive")
	}

	if cfg.BuffDuration < 0 {
		return errors.New("buff-duration must not be negative")
	}

	if cfg.BuffLevel < 0 {
		return errors.New("buff-level must not be negative")
	}

	return nil
}
