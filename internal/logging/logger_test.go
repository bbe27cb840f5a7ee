package logging

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, cfg Config) *Logger {
	t.Helper()
	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestHistoryCapturesComponentLoggers(t *testing.T) {
	l := newTestLogger(t, Config{Level: "debug", MaxHistory: 10})

	log := l.Component("avatar")
	log.Info().Str("gesture", "spin").Int("frame", 3).Msg("gesture started")

	h := l.GetHistory(1)
	require.Len(t, h, 1)
	assert.Equal(t, "info", h[0].Level)
	assert.Equal(t, "avatar", h[0].Component)
	assert.Equal(t, "gesture started", h[0].Message)
	assert.Equal(t, "frame=3, gesture=spin", h[0].Data)
}

func TestHistoryIsBounded(t *testing.T) {
	l := newTestLogger(t, Config{Level: "debug", MaxHistory: 3})
	z := l.Zerolog()
	for i := 0; i < 10; i++ {
		z.Debug().Int("i", i).Msg("tick")
	}
	h := l.GetHistory(0)
	require.Len(t, h, 3)
	assert.Equal(t, "i=9", h[2].Data)
}

func TestLevelFilters(t *testing.T) {
	l := newTestLogger(t, Config{Level: "warn", MaxHistory: 10})
	before := len(l.GetHistory(0))

	z := l.Zerolog()
	z.Info().Msg("quiet")
	z.Warn().Msg("loud")

	h := l.GetHistory(0)
	require.Len(t, h, before+1)
	assert.Equal(t, "loud", h[len(h)-1].Message)
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	l := newTestLogger(t, Config{Dir: dir, Level: "info"})
	require.NotEmpty(t, l.GetLogPath())

	lg := l.Component("test")
	lg.Info().Msg("written")
	data, err := os.ReadFile(l.GetLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
}

func TestOnLogCallback(t *testing.T) {
	l := newTestLogger(t, Config{Level: "info"})
	got := make(chan LogEntry, 1)
	l.SetOnLog(func(e LogEntry) { got <- e })

	lg := l.Component("feed")
	lg.Info().Msg("client connected")
	select {
	case e := <-got:
		assert.Equal(t, "feed", e.Component)
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	lg := l.Component("x")
	lg.Error().Msg("dropped")
	assert.Empty(t, l.GetHistory(0))
	assert.NoError(t, l.Close())
}

func TestComponentHelpers(t *testing.T) {
	l := newTestLogger(t, Config{Level: "info", MaxHistory: 10})

	l.Debug("feed", "hidden", nil)
	l.Info("feed", "client connected", map[string]any{"clients": 2})
	l.Warn("model", "expression missing", map[string]any{"name": "blush"})
	l.Error("chat", "stream failed", errors.New("boom"), nil)

	h := l.GetHistory(3)
	require.Len(t, h, 3)
	assert.Equal(t, "feed", h[0].Component)
	assert.Equal(t, "clients=2", h[0].Data)
	assert.Equal(t, "warn", h[1].Level)
	assert.Equal(t, "name=blush", h[1].Data)
	assert.Equal(t, "error", h[2].Level)
	assert.Equal(t, "chat", h[2].Component)
	assert.Contains(t, h[2].Data, "boom")

	for _, e := range l.GetHistory(0) {
		assert.NotEqual(t, "hidden", e.Message)
	}
}
