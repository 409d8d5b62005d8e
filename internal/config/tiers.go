package config

import (
	"errors"
	"fmt"
	"time"
)

const defaultExemptPrivilege = "rtp.free"

type TierConfig struct {
	Privilege string        `mapstructure:"privilege"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
	Cost      float64       `mapstructure:"cost"`
}

func (cfg *TierConfig) Validate() error {
	if cfg.Cooldown < 0 {
		return errors.New("cooldown must not be negative")
	}

	if cfg.Cost < 0 {
		return errors.New("cost must not be negative")
	}

	return nil
}

// TiersConfig holds the privilege tiers from lowest to highest.
type TiersConfig struct {
	Base            TierConfig `mapstructure:"base"`
	VIP             TierConfig `mapstructure:"vip"`
	VIPPlus         TierConfig `mapstructure:"vip-plus"`
	ExemptPrivilege string     `mapstructure:"exempt-privilege"`
}

func (cfg *TiersConfig) Validate() error {
	for name, tier := range map[string]*TierConfig{
		"base":     &cfg.Base,
		"vip":      &cfg.VIP,
		"vip-plus": &cfg.VIPPlus,
	} {
		if err := tier.Validate(); err != nil {
			return fmt.Errorf("tier %s: %w", name, err)
		}
	}

	if cfg.VIP.Privilege == "" || cfg.VIPPlus.Privilege == "" {
		return errors.New("vip and vip-plus privileges must be set")
	}

	if cfg.VIP.Cooldown > cfg.Base.Cooldown || cfg.VIPPlus.Cooldown > cfg.VIP.Cooldown {
		return errors.New("cooldowns must not increase with tier")
	}

	if cfg.ExemptPrivilege == "" {
		cfg.ExemptPrivilege = defaultExemptPrivilege
	}

	return nil
}
