package config

import (
	"errors"
	"fmt"
)

const (
	defaultHazardRadius    = 2
	defaultRelaxedAttempts = 5
	defaultFallbackRadius  = 1000
)

type SafetyConfig struct {
	// Strict disables every hazard check when false; only terrain bounds apply.
	Strict             bool     `mapstructure:"strict"`
	MinY               int      `mapstructure:"min-y"`
	MaxY               int      `mapstructure:"max-y"`
	MaxTries           int      `mapstructure:"max-tries"`
	AvoidWater         bool     `mapstructure:"avoid-water"`
	AvoidLava          bool     `mapstructure:"avoid-lava"`
	HazardRadius       int      `mapstructure:"hazard-radius"`
	RelaxedAttempts    int      `mapstructure:"relaxed-attempts"`
	FallbackRadius     int      `mapstructure:"fallback-radius"`
	DangerousMaterials []string `mapstructure:"dangerous-materials"`
	// PassableMaterials extends the non-solid blocks a participant may stand in.
	PassableMaterials  []string `mapstructure:"passable-materials"`
}

func (cfg *SafetyConfig) Validate() error {
	if cfg.MinY > cfg.MaxY {
		return fmt.Errorf("min-y %d must not exceed max-y %d", cfg.MinY, cfg.MaxY)
	}

	if cfg.MaxTries < 0 {
		return errors.New("max-tries must not be negative")
	}

	if cfg.HazardRadius <= 0 {
		cfg.HazardRadius = defaultHazardRadius
	}

	if cfg.RelaxedAttempts <= 0 {
		cfg.RelaxedAttempts = defaultRelaxedAttempts
	}

	if cfg.FallbackRadius <= 0 {
		cfg.FallbackRadius = defaultFallbackRadius
	}

	return nil
}
