package avatar3d

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDampFrameRateIndependent(t *testing.T) {
	const total = 0.5
	for _, lambda := range []float64{1, 6, 15} {
		once := Damp(0, 1, lambda, total)

		v := 0.0
		stepFrames(60, total/60, func(dt float64) { v = Damp(v, 1, lambda, dt) })
		assert.InDelta(t, once, v, 1e-12, "lambda %v at 120fps", lambda)

		u := 0.0
		for _, dt := range []float64{0.1, 0.05, 0.2, 0.125, 0.025} {
			u = Damp(u, 1, lambda, dt)
		}
		assert.InDelta(t, once, u, 1e-12, "lambda %v uneven frames", lambda)
	}
}

func TestDampApproachesTargetMonotonically(t *testing.T) {
	v := 10.0
	prev := v
	stepFrames(200, 1.0/60, func(dt float64) {
		v = Damp(v, -2, 8, dt)
		assert.LessOrEqual(t, v, prev)
		assert.GreaterOrEqual(t, v, -2.0)
		prev = v
	})
	assert.InDelta(t, -2, v, 1e-6)
}

func TestDampNoTime(t *testing.T) {
	assert.Equal(t, 0.3, Damp(0.3, 1, 10, 0))
	assert.Equal(t, 0.3, Damp(0.3, 1, 0, 0.1))
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{4 * math.Pi, 0},
		{math.Pi, -math.Pi},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, WrapAngle(tt.in), 1e-12, "wrap(%v)", tt.in)
	}
}

func TestDampAngleTakesShortestArc(t *testing.T) {
	deg := math.Pi / 180
	from, to := 359*deg, 1*deg

	v := from
	prev := v
	stepFrames(120, 1.0/60, func(dt float64) {
		v = DampAngle(v, to, 10, dt)
		assert.GreaterOrEqual(t, v, prev, "never turns back through 180°")
		prev = v
	})
	assert.InDelta(t, 361*deg, v, 1e-4)
	assert.InDelta(t, to, WrapAngle(v), 1e-4)
}

func TestDampedScalarAndAngle(t *testing.T) {
	s := DampedScalar{Target: 1, Lambda: 5}
	assert.InDelta(t, 1-math.Exp(-5*0.2), s.Step(0.2), 1e-12)

	a := DampedAngle{Current: -3, Target: 3, Lambda: 5}
	a.Step(0.1)
	assert.Less(t, a.Current, -3.0, "wraps backward across -π")
}
