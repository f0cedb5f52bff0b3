package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5000", cfg.Addr())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 8080

[chat]
model = "llama3"

[printer]
host = "192.168.1.50"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "llama3", cfg.Chat.Model)
	assert.Equal(t, "192.168.1.50", cfg.Printer.Host)

	// Untouched sections keep their defaults.
	assert.Equal(t, "webshop.db", cfg.Store.Path)
	assert.Equal(t, 9100, cfg.Printer.Port)
}

func TestLoad_EnvPortOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_BadEnvPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
