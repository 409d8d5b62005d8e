package config

import (
	"errors"
	"time"
)

const defaultPublishTimeout = 5 * time.Second

type QueueConfig struct {
	URL            string        `mapstructure:"url"`
	QueueName      string        `mapstructure:"queue-name"`
	PublishTimeout time.Duration `mapstructure:"publish-timeout"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.URL == "" {
		return errors.New("queue url must be set")
	}

	if cfg.QueueName == "" {
		return errors.New("queue name must be set")
	}

	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}

	return nil
}
