// Package frameloop drives the avatar at a fixed tick rate with a clamped
// frame delta.
package frameloop

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kenhendricks00/ai-companion/internal/bus"
	"github.com/kenhendricks00/ai-companion/internal/metrics"
)

// Advancer is advanced once per frame by dt seconds.
type Advancer interface {
	Advance(dt float64)
}

// WallClockAdvancer also receives the unclamped gap, for playback such as
// lip sync that has to stay in step with real time.
type WallClockAdvancer interface {
	AdvanceFrame(dt, wall float64)
}

type Config struct {
	FPS       float64
	MaxDelta  float64       // seconds; longer gaps are clamped
	SlowFrame time.Duration // gaps longer than this are reported
}

type Loop struct {
	target Advancer
	cfg    Config
	events *bus.EventBus
	logger zerolog.Logger
	now    func() time.Time

	frames uint64
}

func New(target Advancer, cfg Config, events *bus.EventBus, logger zerolog.Logger) *Loop {
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = 0.1
	}
	return &Loop{
		target: target,
		cfg:    cfg,
		events: events,
		logger: logger.With().Str("component", "frameloop").Logger(),
		now:    time.Now,
	}
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / l.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info().Float64("fps", l.cfg.FPS).Msg("frame loop started")

	last := l.now()
	fpsTimer, fpsFrames := last, 0
	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Uint64("frames", l.frames).Msg("frame loop stopped")
			return nil
		case <-ticker.C:
		}

		now := l.now()
		l.Tick(now.Sub(last))
		last = now

		fpsFrames++
		if now.Sub(fpsTimer) >= 5*time.Second {
			l.logger.Debug().Float64("fps", float64(fpsFrames)/now.Sub(fpsTimer).Seconds()).Msg("frame rate")
			fpsTimer, fpsFrames = now, 0
		}
	}
}

// Tick advances one frame for a wall-clock gap.
func (l *Loop) Tick(gap time.Duration) {
	dt := gap.Seconds()
	if dt > l.cfg.MaxDelta {
		dt = l.cfg.MaxDelta
	}

	start := l.now()
	if w, ok := l.target.(WallClockAdvancer); ok {
		w.AdvanceFrame(dt, gap.Seconds())
	} else {
		l.target.Advance(dt)
	}
	l.frames++

	slow := l.cfg.SlowFrame > 0 && gap > l.cfg.SlowFrame
	metrics.ObserveFrame(l.now().Sub(start), slow)
	if slow && l.events != nil {
		l.events.Publish(bus.Event{Type: bus.EventTypeFrameSlow, Data: map[string]any{
			"gap_ms": float64(gap.Microseconds()) / 1000,
		}})
	}
}

func (l *Loop) Frames() uint64 { return l.frames }
