package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvTest       = "test"
	EnvProduction = "production"
)

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" or empty for stdout
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Status API configuration
 * @property {string} address - Listen address (e.g. "127.0.0.1:9100"), empty disables the API
 * @property {string} mode - Gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

/**
 * Template resolution configuration
 * @property {string} root - Directory holding the built-in templates
 */
type TemplatesConfig struct {
	Root string `mapstructure:"root"`
}

/**
 * Shutdown coordinator configuration
 * @property {duration} stop_timeout - Bounded wait per service during teardown
 */
type ShutdownConfig struct {
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

/**
 * Application runtime configuration, constructed once at startup and
 * passed into the resolver, planners and supervisor. There is no
 * package-level mutable instance.
 * @property {string} environment - "test" or "production"; in test mode
 * services may only bind loopback addresses unless forced
 */
type AppConfig struct {
	Environment string          `mapstructure:"environment"`
	Log         LogConfig       `mapstructure:"log"`
	Server      ServerConfig    `mapstructure:"server"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Templates   TemplatesConfig `mapstructure:"templates"`
	Shutdown    ShutdownConfig  `mapstructure:"shutdown"`
}

/**
 * Load runtime configuration from a YAML file
 * @param {string} path - Explicit config file path; empty searches for
 * "decoyd.yaml" in the working directory and $HOME/.decoyd
 * @returns {*AppConfig} Populated configuration with defaults applied
 * @returns {error} Error if the file exists but cannot be read or decoded
 * @description
 * - A missing config file is not an error, defaults apply
 * - An explicitly given path that does not exist is an error
 */
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("decoyd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.decoyd")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Environment == "" {
		cfg.Environment = EnvTest
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Templates.Root == "" {
		cfg.Templates.Root = "templates"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Shutdown.StopTimeout <= 0 {
		cfg.Shutdown.StopTimeout = 10 * time.Second
	}
}

func (cfg *AppConfig) Validate() error {
	if cfg.Environment != EnvTest && cfg.Environment != EnvProduction {
		return fmt.Errorf("config: unknown environment %q (want %q or %q)",
			cfg.Environment, EnvTest, EnvProduction)
	}
	return nil
}

// IsTestEnv reports whether the loopback-only bind restriction applies.
func (cfg *AppConfig) IsTestEnv() bool {
	return cfg.Environment == EnvTest
}

// Default returns the configuration used when no config file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}
