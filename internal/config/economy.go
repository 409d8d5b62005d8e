package config

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"
)

const (
	defaultLocale         = "en"
	defaultCurrencySymbol = "$"
)

type EconomyConfig struct {
	Enabled        bool            `mapstructure:"enabled"`
	Locale         string          `mapstructure:"locale"`
	CurrencySymbol string          `mapstructure:"currency-symbol"`
	CurrencyName   string          `mapstructure:"currency-name"`
	Refund         RefundConfig    `mapstructure:"refund"`
	Providers      ProvidersConfig `mapstructure:"providers"`
}

func (cfg *EconomyConfig) Validate() error {
	if cfg.Locale == "" {
		cfg.Locale = defaultLocale
	}

	if _, err := language.Parse(cfg.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", cfg.Locale, err)
	}

	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = defaultCurrencySymbol
	}

	if !cfg.Enabled {
		return nil
	}

	return cfg.Providers.Validate()
}

// RefundConfig decides which cancellation causes give the reserved cost back.
type RefundConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	OnMove       bool `mapstructure:"on-move"`
	OnDeath      bool `mapstructure:"on-death"`
	OnTeleport   bool `mapstructure:"on-teleport"`
	OnDisconnect bool `mapstructure:"on-disconnect"`
}

type ProvidersConfig struct {
	Memory *MemoryProviderConfig `mapstructure:"memory"`
	Ledger *LedgerProviderConfig `mapstructure:"ledger"`
	Wallet *WalletProviderConfig `mapstructure:"wallet"`
}

func (cfg *ProvidersConfig) Validate() error {
	if cfg.Memory == nil && cfg.Ledger == nil && cfg.Wallet == nil {
		return errors.New("at least one economy provider must be configured")
	}

	if cfg.Ledger != nil {
		if err := cfg.Ledger.Validate(); err != nil {
			return fmt.Errorf("ledger provider: %w", err)
		}
	}

	if cfg.Wallet != nil {
		if err := cfg.Wallet.Validate(); err != nil {
			return fmt.Errorf("wallet provider: %w", err)
		}
	}

	return nil
}

type MemoryProviderConfig struct {
	Priority        int     `mapstructure:"priority"`
	StartingBalance float64 `mapstructure:"starting-balance"`
}

type LedgerProviderConfig struct {
	Path            string  `mapstructure:"path"`
	Priority        int     `mapstructure:"priority"`
	StartingBalance float64 `mapstructure:"starting-balance"`
}

func (cfg *LedgerProviderConfig) Validate() error {
	if cfg.Path == "" {
		return errors.New("ledger path must be set")
	}

	if cfg.StartingBalance < 0 {
		return errors.New("starting-balance must not be negative")
	}

	return nil
}

type WalletProviderConfig struct {
	URL           string        `mapstructure:"url"`
	Priority      int           `mapstructure:"priority"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (cfg *WalletProviderConfig) Validate() error {
	if cfg.URL == "" {
		return fmt.Errorf("wallet URL must be set")
	}

	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if cfg.MaxRetryTimes == 0 {
		return errors.New("max-retry-times must be positive")
	}

	if cfg.RetryInterval <= 0 {
		return errors.New("retry-interval must be positive")
	}

	return nil
}
