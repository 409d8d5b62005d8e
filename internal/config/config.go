package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "RTP"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Db       DbConfig       `mapstructure:"db"`
	Store    StoreConfig    `mapstructure:"store"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Teleport TeleportConfig `mapstructure:"teleport"`
	Safety   SafetyConfig   `mapstructure:"safety"`
	Tiers    TiersConfig    `mapstructure:"tiers"`
	Economy  EconomyConfig  `mapstructure:"economy"`
	World    WorldConfig    `mapstructure:"world"`
	Queue    *QueueConfig   `mapstructure:"queue"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := cfg.Store.Validate(); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}

	// mongo settings are only required when records are persisted there
	if cfg.Store.Backend == StoreBackendMongo {
		if err := cfg.Db.Validate(); err != nil {
			return fmt.Errorf("invalid db config: %w", err)
		}
	}

	if err := cfg.Poller.Validate(); err != nil {
		return fmt.Errorf("invalid poller config: %w", err)
	}

	if err := cfg.Teleport.Validate(); err != nil {
		return fmt.Errorf("invalid teleport config: %w", err)
	}

	if err := cfg.Safety.Validate(); err != nil {
		return fmt.Errorf("invalid safety config: %w", err)
	}

	if err := cfg.Tiers.Validate(); err != nil {
		return fmt.Errorf("invalid tiers config: %w", err)
	}

	if err := cfg.Economy.Validate(); err != nil {
		return fmt.Errorf("invalid economy config: %w", err)
	}

	if err := cfg.World.Validate(); err != nil {
		return fmt.Errorf("invalid world config: %w", err)
	}

	// queue is optional, outcome events are not published without it
	if cfg.Queue != nil {
		if err := cfg.Queue.Validate(); err != nil {
			return fmt.Errorf("invalid queue config: %w", err)
		}
	}

	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

// New loads the yaml config file at cfgFile. Every key can be overridden
// through RTP_ prefixed environment variables, e.g. RTP_TELEPORT_RANGE.
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
