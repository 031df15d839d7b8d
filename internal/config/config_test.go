package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")
	t.Setenv("GAME_TCP_PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8888, cfg.Server.GetTCPPort())
	assert.Equal(t, 800.0, cfg.World.Width)
	assert.Equal(t, 600.0, cfg.World.Height)
	assert.Equal(t, 60*1024, cfg.Server.MaxMessageSize)
	assert.Equal(t, "incremental", cfg.World.DeltaStrategy)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  tcp_port: 9999
  transport: kcp
world:
  width: 1024
  initial_creeps: 3
nats:
  url: nats://localhost:4222
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.GetTCPPort())
	assert.Equal(t, "kcp", cfg.Server.Transport)
	assert.Equal(t, 1024.0, cfg.World.Width)
	assert.Equal(t, 600.0, cfg.World.Height, "незаданное поле сохраняет значение по умолчанию")
	assert.Equal(t, 3, cfg.World.InitialCreeps)
	assert.Equal(t, "mmo.events", cfg.NATS.Prefix)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  tick_rate: 10\n"), 0o644))
	t.Setenv("GAME_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, cfg.Server.TickInterval(), 1e-9)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("world:\n  width: -1\n"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestPortEnvFallback(t *testing.T) {
	t.Setenv("GAME_TCP_PORT", "7000")
	t.Setenv("GAME_METRICS_PORT", "9100")

	s := ServerConfig{}
	assert.Equal(t, 7000, s.GetTCPPort(), "порт из окружения")
	s.TCPPort = 7100
	assert.Equal(t, 7100, s.GetTCPPort(), "порт из конфига важнее окружения")

	a := APIConfig{}
	assert.Equal(t, 9100, a.GetPort())
}
