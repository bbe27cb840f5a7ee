package avatar3d

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGesture(t *testing.T) {
	g, err := ParseGesture(" BlowKiss ")
	require.NoError(t, err)
	assert.Equal(t, GestureBlowKiss, g)

	_, err = ParseGesture("moonwalk")
	assert.Error(t, err)
}

func TestGestureMachineDropsRequestsWhileActive(t *testing.T) {
	m := NewGestureMachine()
	require.True(t, m.Request(GestureWave))

	completions := 0
	for i := 0; i < 200; i++ {
		assert.False(t, m.Request(GestureSpin))
		if kind, active := m.Active(); active {
			assert.Equal(t, GestureWave, kind)
		}

		before := m.Progress()
		_, finished, done := m.Advance(1.0 / 60)
		if done {
			completions++
			assert.Equal(t, GestureWave, finished)
			assert.Less(t, before, 1.0, "fires on the first frame reaching 1")
			assert.Equal(t, 0.0, m.Progress())
			break
		}
		assert.Less(t, m.Progress(), 1.0)
	}
	assert.Equal(t, 1, completions)

	_, active := m.Active()
	assert.False(t, active)
	_, _, done := m.Advance(1.0 / 60)
	assert.False(t, done, "completion fires once")

	assert.True(t, m.Request(GestureSpin), "accepts again after completion")
}

func TestGestureMachineRefusesUnknownKinds(t *testing.T) {
	m := NewGestureMachine()
	assert.False(t, m.Request("moonwalk"))
	assert.False(t, m.Request(""))
	_, active := m.Active()
	assert.False(t, active)
	assert.True(t, m.Request(GestureWave), "a refused kind does not block real gestures")
}

func TestGestureDurations(t *testing.T) {
	frames := func(g GestureKind) int {
		m := NewGestureMachine()
		m.Request(g)
		for n := 1; n < 1000; n++ {
			if _, _, done := m.Advance(1.0 / 60); done {
				return n
			}
		}
		return -1
	}
	assert.InDelta(t, 50, frames(GestureWave), 1)
	assert.InDelta(t, 75, frames(GestureSpin), 1)
	assert.InDelta(t, 75, frames(GestureDance), 1)
	assert.InDelta(t, 50, frames(GestureBlush), 1)
}

func TestContributionsAt(t *testing.T) {
	c := ContributionsAt(GestureSpin, 0.5)
	assert.InDelta(t, math.Pi, c.SpinAngle, 1e-9)
	assert.InDelta(t, 0.08, c.JumpHeight, 1e-9)
	assert.Equal(t, OverrideHappy, c.Override)
	assert.InDelta(t, 0.7, c.OverrideIntensity, 1e-9)

	c = ContributionsAt(GestureJump, 0)
	assert.InDelta(t, 0.65, c.KneeBend, 1e-9, "crouched at take-off")
	assert.InDelta(t, 0, c.JumpHeight, 1e-9)
	assert.False(t, c.OverrideActive(), "zero intensity at the start")

	c = ContributionsAt(GestureJump, 0.5)
	assert.InDelta(t, 0.3, c.JumpHeight, 1e-9)
	assert.InDelta(t, 0, c.KneeBend, 1e-9)
	assert.Equal(t, OverrideExcited, c.Override)

	assert.Equal(t, OverrideHappy, ContributionsAt(GestureBlowKiss, 0.2).Override)
	assert.Equal(t, OverrideLove, ContributionsAt(GestureBlowKiss, 0.5).Override)

	c = ContributionsAt(GestureBow, 0.5)
	assert.InDelta(t, 0.4, c.Bow, 1e-9)
	assert.Equal(t, OverrideNone, c.Override)

	c = ContributionsAt(GestureWink, 0.5)
	assert.Equal(t, OverrideWink, c.Override)
	assert.InDelta(t, 1, c.OverrideIntensity, 1e-9)

	c = ContributionsAt(GestureSurprise, 1)
	assert.InDelta(t, 0, c.SpinJiggle, 1e-9)
}

func TestEaseInOutQuad(t *testing.T) {
	assert.Equal(t, 0.0, easeInOutQuad(0))
	assert.InDelta(t, 0.5, easeInOutQuad(0.5), 1e-12)
	assert.InDelta(t, 1, easeInOutQuad(1), 1e-12)
	assert.Less(t, easeInOutQuad(0.25), 0.25)
	assert.Greater(t, easeInOutQuad(0.75), 0.75)
}

func TestGestureSmootherPassesSpinThrough(t *testing.T) {
	s := NewGestureSmoother(0)
	out := s.Advance(1.0/60, GestureContribution{SpinAngle: 4, JumpHeight: 1})
	assert.Equal(t, 4.0, out.SpinAngle)
	assert.Greater(t, out.JumpHeight, 0.0)
	assert.Less(t, out.JumpHeight, 1.0)

	out = s.Advance(1.0/60, GestureContribution{})
	assert.Equal(t, 0.0, out.SpinAngle, "yaw snaps back")
	assert.Greater(t, out.JumpHeight, 0.0, "other channels ease out")
}
