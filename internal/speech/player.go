package speech

import (
	"context"
	"time"
)

// ClockPlayer "plays" an utterance by waiting out its duration. It stands
// in for an audio device.
type ClockPlayer struct{}

func (ClockPlayer) Play(ctx context.Context, u *Utterance, onStart func()) error {
	if onStart != nil {
		onStart()
	}
	if u.Duration <= 0 {
		return nil
	}

	timer := time.NewTimer(u.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func scaleDuration(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}
