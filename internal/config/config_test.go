package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDefaultsAreValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	v := New()
	v.AddConfigPath(t.TempDir())
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Chat.Model, cfg.Chat.Model)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
avatar:
  model_path: /models/avatar.vrm
  affection: 80
animation:
  long_gesture_speed: 0.5
chat:
  timeout: 5s
`)
	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/models/avatar.vrm", cfg.Avatar.ModelPath)
	assert.Equal(t, 80.0, cfg.Avatar.Affection)
	assert.Equal(t, 0.5, cfg.Animation.LongGestureSpeed)
	assert.Equal(t, 5*time.Second, cfg.Chat.Timeout)
	assert.Equal(t, 60.0, cfg.Avatar.FPS)

	opts := cfg.AvatarOptions()
	assert.Equal(t, 80.0, opts.Affection)
	assert.Equal(t, 0.5, opts.LongGestureSpeed)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("COMPANION_AVATAR_AFFECTION", "12")
	t.Setenv("COMPANION_CHAT_MODEL", "llama3")

	v := New()
	v.AddConfigPath(t.TempDir())
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 12.0, cfg.Avatar.Affection)
	assert.Equal(t, "llama3", cfg.Chat.Model)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Avatar.Affection = 150
	cfg.Avatar.FPS = 0
	cfg.Speech.WordsPerMinute = -1

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "avatar.affection")
	assert.Contains(t, err.Error(), "avatar.fps")
	assert.Contains(t, err.Error(), "speech.words_per_minute")
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "avatar:\n  affection: -5\n")
	_, err := Load(New(), path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "config.yaml")
	cfg := DefaultConfig()
	cfg.Avatar.ModelPath = "avatar.vrm"
	cfg.Speech.Voice = "af_bella"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "avatar.vrm", loaded.Avatar.ModelPath)
	assert.Equal(t, "af_bella", loaded.Speech.Voice)
	assert.Equal(t, cfg.Chat.Timeout, loaded.Chat.Timeout)
}

func TestWatchAppliesEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "avatar:\n  affection: 10\n")

	v := New()
	_, err := Load(v, path)
	require.NoError(t, err)

	got := make(chan *Config, 4)
	Watch(v, zerolog.Nop(), func(c *Config) { got <- c })

	writeFile(t, path, "avatar:\n  affection: 90\n")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Avatar.Affection == 90 {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
