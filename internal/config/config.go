package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds runtime configuration.
type Config struct {
	Expiration ExpirationConfig `mapstructure:"expiration"`
	WorkLoop   WorkLoopConfig   `mapstructure:"work_loop"`
	Log        LogConfig        `mapstructure:"log"`
}

// ExpirationConfig holds the durations used to bucket update expirations.
type ExpirationConfig struct {
	AsyncMs             int64 `mapstructure:"async_ms"`
	AsyncBucketMs       int64 `mapstructure:"async_bucket_ms"`
	InteractiveMs       int64 `mapstructure:"interactive_ms"`
	InteractiveBucketMs int64 `mapstructure:"interactive_bucket_ms"`
}

type WorkLoopConfig struct {
	// MaxNestedUpdates bounds the commits a root may trigger from its own
	// lifecycle hooks before the update is rejected.
	MaxNestedUpdates int `mapstructure:"max_nested_updates"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the built in configuration.
func Default() Config {
	return Config{
		Expiration: ExpirationConfig{
			AsyncMs:             5000,
			AsyncBucketMs:       250,
			InteractiveMs:       150,
			InteractiveBucketMs: 100,
		},
		WorkLoop: WorkLoopConfig{MaxNestedUpdates: 1000},
		Log:      LogConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("expiration.async_ms", d.Expiration.AsyncMs)
	v.SetDefault("expiration.async_bucket_ms", d.Expiration.AsyncBucketMs)
	v.SetDefault("expiration.interactive_ms", d.Expiration.InteractiveMs)
	v.SetDefault("expiration.interactive_bucket_ms", d.Expiration.InteractiveBucketMs)
	v.SetDefault("work_loop.max_nested_updates", d.WorkLoop.MaxNestedUpdates)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads configuration from path, or from FIBER_CONFIG, or from
// $HOME/.config/fiber/config.yaml when present. Env var overrides use prefix
// FIBER_.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv("FIBER_CONFIG")
	}

	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "fiber"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FIBER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the scheduler cannot work with.
func (c Config) Validate() error {
	e := c.Expiration
	switch {
	case e.AsyncMs <= 0, e.InteractiveMs <= 0:
		return fmt.Errorf("config: expiration durations must be positive")
	case e.AsyncBucketMs < 10, e.InteractiveBucketMs < 10:
		return fmt.Errorf("config: expiration buckets must be at least 10ms")
	case c.WorkLoop.MaxNestedUpdates <= 0:
		return fmt.Errorf("config: work_loop.max_nested_updates must be positive")
	}
	return nil
}
