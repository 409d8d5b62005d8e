package config

import (
	"errors"
	"fmt"
	"time"
)

const defaultServerTimeout = 10 * time.Second

type ServerConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (cfg *ServerConfig) Validate() error {
	if cfg.Host == "" {
		return errors.New("host must be set")
	}

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1024 and 65535, got %d", cfg.Port)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultServerTimeout
	}

	return nil
}

func (cfg *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
