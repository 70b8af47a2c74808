// Package config loads wordflux settings from environment variables and
// an optional config.yaml, environment taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for the serve command.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `mapstructure:"listen-addr"`

	// Provider connection. Empty URL selects the in-memory demo board.
	ProviderURL      string `mapstructure:"provider-url"`
	ProviderUsername string `mapstructure:"provider-username"`
	ProviderPassword string `mapstructure:"provider-password"`

	// SwimlaneID is passed through to the provider on moves.
	SwimlaneID string `mapstructure:"swimlane-id"`

	// Retry profile for provider calls.
	RetryAttempts int           `mapstructure:"retry-attempts"`
	RetryBase     time.Duration `mapstructure:"retry-base"`

	// SnapshotTimeout bounds the board-state fetch per request.
	SnapshotTimeout time.Duration `mapstructure:"snapshot-timeout"`

	// Telemetry toggles the stdout metrics exporter.
	Telemetry bool `mapstructure:"telemetry"`
}

// Load reads configuration: defaults, then config.yaml in dir (if
// present), then WORDFLUX_* environment variables on top.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen-addr", "127.0.0.1:8090")
	v.SetDefault("provider-url", "")
	v.SetDefault("provider-username", "")
	v.SetDefault("provider-password", "")
	v.SetDefault("swimlane-id", "1")
	v.SetDefault("retry-attempts", 5)
	v.SetDefault("retry-base", 120*time.Millisecond)
	v.SetDefault("snapshot-timeout", 3*time.Second)
	v.SetDefault("telemetry", false)

	v.SetEnvPrefix("WORDFLUX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
