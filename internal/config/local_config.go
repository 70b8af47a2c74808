package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig is the subset of config.yaml read directly from disk,
// bypassing viper. Used before viper is initialized (the root command
// deciding whether a board is configured at all) and by tooling that
// must not pick up environment overrides.
type LocalConfig struct {
	ProviderURL string `yaml:"provider-url"`
	SwimlaneID  string `yaml:"swimlane-id"`
	ListenAddr  string `yaml:"listen-addr"`
}

// LoadLocalConfig reads config.yaml from dir. Returns an empty (not
// nil) LocalConfig when the file is missing or malformed.
func LoadLocalConfig(dir string) *LocalConfig {
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml")) // #nosec G304 - caller-chosen config dir
	if err != nil {
		return &LocalConfig{}
	}
	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}
	return &cfg
}

// HasProvider reports whether a remote board is configured in dir's
// config.yaml, before any environment overrides.
func HasProvider(dir string) bool {
	return LoadLocalConfig(dir).ProviderURL != ""
}
