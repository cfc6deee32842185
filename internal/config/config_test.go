package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		cfg := DefaultConfig()

		assert.Equal(t, "mpv", cfg.Player.Command)
		assert.Equal(t, 100, cfg.Player.Volume)
		assert.Equal(t, 500*time.Millisecond, cfg.Playback.SuppressWindow)
		assert.Equal(t, 100*time.Millisecond, cfg.Playback.ResumeDelay)
		assert.Equal(t, time.Second, cfg.Playback.TickInterval)
		assert.True(t, cfg.Playback.AvoidRepeat)
		assert.Equal(t, "INFO", cfg.Logging.Level)
		assert.False(t, cfg.IsConfigured())
	})

	t.Run("LoadFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `server:
  url: http://nas.local:5244
  token: abc
player:
  command: none
  volume: 40
playback:
  suppress_window: 250ms
  avoid_repeat: false
favorites:
  default_folder: Night
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.True(t, cfg.IsConfigured())
		assert.Equal(t, "http://nas.local:5244", cfg.Server.URL)
		assert.Equal(t, "none", cfg.Player.Command)
		assert.Equal(t, 40, cfg.Player.Volume)
		assert.Equal(t, 250*time.Millisecond, cfg.Playback.SuppressWindow)
		assert.False(t, cfg.Playback.AvoidRepeat)
		assert.Equal(t, "Night", cfg.Favorites.DefaultFolder)
		// untouched keys keep their defaults
		assert.Equal(t, time.Second, cfg.Playback.TickInterval)
		assert.Equal(t, path, cfg.Source())
	})

	t.Run("EnvOverride", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  url: http://a\n"), 0644))
		t.Setenv("CANTO_SERVER_URL", "http://b")
		t.Setenv("CANTO_LOGGING_LEVEL", "DEBUG")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "http://b", cfg.Server.URL)
		assert.Equal(t, "DEBUG", cfg.Logging.Level)
	})

	t.Run("MalformedFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("SaveRoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.yaml")
		cfg := DefaultConfig()
		cfg.source = path
		cfg.Server.URL = "http://nas.local:5244"
		cfg.Server.Token = "tok"
		cfg.Playback.ResumeDelay = 200 * time.Millisecond

		require.NoError(t, SaveConfig(cfg))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "tok", loaded.Server.Token)
		assert.Equal(t, 200*time.Millisecond, loaded.Playback.ResumeDelay)
	})
}
