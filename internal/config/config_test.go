package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8090", cfg.ListenAddr)
	assert.Equal(t, "1", cfg.SwimlaneID)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 120*time.Millisecond, cfg.RetryBase)
	assert.Equal(t, 3*time.Second, cfg.SnapshotTimeout)
	assert.Empty(t, cfg.ProviderURL)
	assert.False(t, cfg.Telemetry)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := "listen-addr: 0.0.0.0:9999\nprovider-url: https://board.example.com/jsonrpc\nretry-attempts: 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.ListenAddr)
	assert.Equal(t, "https://board.example.com/jsonrpc", cfg.ProviderURL)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, "1", cfg.SwimlaneID, "unset keys keep their defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("listen-addr: 0.0.0.0:9999\n"), 0o600))
	t.Setenv("WORDFLUX_LISTEN_ADDR", "127.0.0.1:7070")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7070", cfg.ListenAddr)
}

func TestMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("listen-addr: [unclosed"), 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadLocalConfig(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, HasProvider(dir), "missing file yields empty config")

	content := "provider-url: https://board.example.com/jsonrpc\nswimlane-id: \"2\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	cfg := LoadLocalConfig(dir)
	assert.Equal(t, "https://board.example.com/jsonrpc", cfg.ProviderURL)
	assert.Equal(t, "2", cfg.SwimlaneID)
	assert.True(t, HasProvider(dir))
}
