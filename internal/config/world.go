package config

import (
	"errors"
)

// WorldConfig describes the generated terrain used by the built-in world.
type WorldConfig struct {
	Name string `mapstructure:"name"`
	Seed int64  `mapstructure:"seed"`
	// LoadedRadius is the half-width in blocks of the area with loaded chunks.
	LoadedRadius int `mapstructure:"loaded-radius"`
	SeaLevel     int `mapstructure:"sea-level"`
}

func (cfg *WorldConfig) Validate() error {
	if cfg.Name == "" {
		return errors.New("world name must be set")
	}

	if cfg.LoadedRadius <= 0 {
		return errors.New("loaded-radius must be positive")
	}

	return nil
}
