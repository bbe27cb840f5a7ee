package frameloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenhendricks00/ai-companion/internal/bus"
)

type recorder struct {
	mu  sync.Mutex
	dts []float64
}

func (r *recorder) Advance(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dts = append(r.dts, dt)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dts)
}

func TestTickClampsDelta(t *testing.T) {
	r := &recorder{}
	l := New(r, Config{FPS: 60, MaxDelta: 0.1}, nil, zerolog.Nop())

	l.Tick(16 * time.Millisecond)
	l.Tick(2 * time.Second)

	require.Len(t, r.dts, 2)
	assert.InDelta(t, 0.016, r.dts[0], 1e-9)
	assert.InDelta(t, 0.1, r.dts[1], 1e-9)
	assert.Equal(t, uint64(2), l.Frames())
}

type wallRecorder struct {
	recorder
	walls []float64
}

func (r *wallRecorder) AdvanceFrame(dt, wall float64) {
	r.Advance(dt)
	r.walls = append(r.walls, wall)
}

func TestTickPassesUnclampedGap(t *testing.T) {
	r := &wallRecorder{}
	l := New(r, Config{FPS: 60, MaxDelta: 0.1}, nil, zerolog.Nop())

	l.Tick(16 * time.Millisecond)
	l.Tick(750 * time.Millisecond)

	require.Len(t, r.dts, 2)
	assert.InDelta(t, 0.1, r.dts[1], 1e-9)
	require.Len(t, r.walls, 2)
	assert.InDelta(t, 0.016, r.walls[0], 1e-9)
	assert.InDelta(t, 0.75, r.walls[1], 1e-9)
}

func TestTickReportsSlowFrames(t *testing.T) {
	b := bus.NewEventBus()
	slow := make(chan bus.Event, 1)
	b.Subscribe(bus.EventTypeFrameSlow, func(e bus.Event) { slow <- e })

	l := New(&recorder{}, Config{SlowFrame: 50 * time.Millisecond}, b, zerolog.Nop())
	l.Tick(10 * time.Millisecond)
	l.Tick(120 * time.Millisecond)

	select {
	case e := <-slow:
		assert.InDelta(t, 120.0, e.Data["gap_ms"], 1e-9)
	case <-time.After(time.Second):
		t.Fatal("slow frame not reported")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	r := &recorder{}
	l := New(r, Config{FPS: 200}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	assert.Eventually(t, func() bool { return r.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
