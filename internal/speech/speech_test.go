package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLips struct {
	mu       sync.Mutex
	spoken   []string
	duration []float64
	stops    int
}

func (f *fakeLips) Speak(text string, durationMs float64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	f.duration = append(f.duration, durationMs)
	return "u1"
}

func (f *fakeLips) StopSpeaking() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeLips) snapshot() ([]string, []float64, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...), append([]float64(nil), f.duration...), f.stops
}

type failingSynth struct{}

func (failingSynth) Synthesize(context.Context, *Request) (*Utterance, error) {
	return nil, errors.New("engine offline")
}

// blockingPlayer starts, then waits for ctx.
type blockingPlayer struct{ started chan struct{} }

func (p blockingPlayer) Play(ctx context.Context, _ *Utterance, onStart func()) error {
	onStart()
	close(p.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), EstimateDuration("   ", 150))
	assert.Equal(t, 2*time.Second, EstimateDuration("one two three four five", 150))
	assert.Equal(t, 400*time.Millisecond, EstimateDuration("one", 0))
}

func TestSilentSynthesizer(t *testing.T) {
	s := SilentSynthesizer{WordsPerMinute: 60}
	u, err := s.Synthesize(context.Background(), &Request{Text: "hi there", Speed: 2})
	require.NoError(t, err)
	assert.Equal(t, time.Second, u.Duration)

	_, err = s.Synthesize(context.Background(), &Request{Text: " "})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestSpeakerDrivesLipSync(t *testing.T) {
	lips := &fakeLips{}
	cfg := Config{WordsPerMinute: 6000, Speed: 1}
	s := NewSpeaker(nil, nil, lips, cfg, zerolog.Nop())

	require.NoError(t, s.Speak(context.Background(), "hello there friend"))

	spoken, durations, stops := lips.snapshot()
	assert.Equal(t, []string{"hello there friend"}, spoken)
	assert.InDelta(t, 30, durations[0], 1)
	assert.Equal(t, 1, stops)
}

func TestSpeakerRejectsEmptyText(t *testing.T) {
	lips := &fakeLips{}
	s := NewSpeaker(nil, nil, lips, DefaultConfig(), zerolog.Nop())
	assert.ErrorIs(t, s.Speak(context.Background(), "  "), ErrEmptyText)
	spoken, _, _ := lips.snapshot()
	assert.Empty(t, spoken)
}

func TestSpeakerSynthesisFailureSilences(t *testing.T) {
	lips := &fakeLips{}
	s := NewSpeaker(failingSynth{}, nil, lips, DefaultConfig(), zerolog.Nop())

	err := s.Speak(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine offline")

	spoken, _, stops := lips.snapshot()
	assert.Empty(t, spoken)
	assert.Equal(t, 1, stops)
}

func TestSpeakerStop(t *testing.T) {
	lips := &fakeLips{}
	player := blockingPlayer{started: make(chan struct{})}
	s := NewSpeaker(nil, player, lips, DefaultConfig(), zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- s.Speak(context.Background(), "a long line") }()

	<-player.started
	s.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("Speak did not return after Stop")
	}
	_, _, stops := lips.snapshot()
	assert.GreaterOrEqual(t, stops, 1)
}

func TestClockPlayerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	started := false
	err := ClockPlayer{}.Play(ctx, &Utterance{Duration: time.Hour}, func() { started = true })
	assert.True(t, started)
	assert.ErrorIs(t, err, context.Canceled)
}
