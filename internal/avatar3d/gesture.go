package avatar3d

import (
	"fmt"
	"math"
	"strings"
)

type GestureKind string

const (
	GestureSpin     GestureKind = "spin"
	GestureTwirl    GestureKind = "twirl"
	GestureJump     GestureKind = "jump"
	GestureWave     GestureKind = "wave"
	GestureDance    GestureKind = "dance"
	GestureBow      GestureKind = "bow"
	GestureBlowKiss GestureKind = "blowkiss"
	GestureHairFlip GestureKind = "hairflip"
	GesturePout     GestureKind = "pout"
	GestureWink     GestureKind = "wink"
	GestureBlush    GestureKind = "blush"
	GestureSurprise GestureKind = "surprise"
)

var AllGestures = []GestureKind{
	GestureSpin, GestureTwirl, GestureJump, GestureWave, GestureDance, GestureBow,
	GestureBlowKiss, GestureHairFlip, GesturePout, GestureWink, GestureBlush, GestureSurprise,
}

func ParseGesture(s string) (GestureKind, error) {
	g := GestureKind(strings.ToLower(strings.TrimSpace(s)))
	if !g.Known() {
		return "", fmt.Errorf("unknown gesture %q", s)
	}
	return g, nil
}

// Known reports whether g is one of AllGestures.
func (g GestureKind) Known() bool {
	for _, known := range AllGestures {
		if g == known {
			return true
		}
	}
	return false
}

// Long gestures play at a slower rate so they read at a similar pace.
func (g GestureKind) Long() bool {
	return g == GestureSpin || g == GestureTwirl || g == GestureDance
}

const (
	DefaultShortGestureSpeed = 1.2
	DefaultLongGestureSpeed  = 0.8
	DefaultGestureSmoothing  = 12
)

// ExpressionOverride names a facial expression a gesture forces while it
// plays. It replaces the ambient emotion for the frame.
type ExpressionOverride string

const (
	OverrideNone      ExpressionOverride = ""
	OverrideHappy     ExpressionOverride = "happy"
	OverrideExcited   ExpressionOverride = "excited"
	OverrideLove      ExpressionOverride = "love"
	OverridePout      ExpressionOverride = "pout"
	OverrideWink      ExpressionOverride = "wink"
	OverrideBlush     ExpressionOverride = "blush"
	OverrideSurprised ExpressionOverride = "surprised"
)

// GestureContribution is everything a gesture adds to one frame.
type GestureContribution struct {
	SpinAngle  float64 // whole-body yaw, radians
	JumpHeight float64
	ArmWave    float64
	Bow        float64
	BlowKiss   float64 // eased 0..1, drives the three-phase arm motion
	HairFlip   float64
	Dance      float64
	KneeBend   float64
	SpinJiggle float64 // secondary hip translation

	Override          ExpressionOverride
	OverrideIntensity float64
}

// OverrideActive reports whether the expression override should replace
// the ambient emotion this frame.
func (c GestureContribution) OverrideActive() bool {
	return c.Override != OverrideNone && c.OverrideIntensity > 0
}

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

// ContributionsAt evaluates a gesture at raw progress p in [0,1].
func ContributionsAt(g GestureKind, p float64) GestureContribution {
	p = clamp(p, 0, 1)
	eased := easeInOutQuad(p)
	arc := math.Sin(p * math.Pi)

	var c GestureContribution
	switch g {
	case GestureSpin, GestureTwirl:
		c.SpinAngle = eased * 2 * math.Pi
		c.JumpHeight = arc * 0.08
		c.SpinJiggle = math.Sin(p*math.Pi*4) * 0.08
		c.Override, c.OverrideIntensity = OverrideHappy, 0.7
	case GestureJump:
		c.JumpHeight = arc * 0.3
		bend := math.Cos(p * math.Pi)
		c.KneeBend = bend * bend * 0.65
		c.Override, c.OverrideIntensity = OverrideExcited, arc*0.9
	case GestureWave:
		c.ArmWave = math.Sin(p*math.Pi*3) * 0.6
		c.Override, c.OverrideIntensity = OverrideHappy, 0.8
	case GestureDance:
		c.SpinAngle = math.Sin(p*math.Pi*2) * 0.2
		c.JumpHeight = math.Abs(math.Sin(p*math.Pi*3)) * 0.06
		c.Dance = math.Sin(p * math.Pi * 3)
		c.Override, c.OverrideIntensity = OverrideHappy, 0.8
	case GestureBow:
		c.Bow = arc * 0.4
	case GestureBlowKiss:
		c.BlowKiss = eased
		c.Override = OverrideLove
		if p < 0.35 {
			c.Override = OverrideHappy
		}
		c.OverrideIntensity = arc
	case GestureHairFlip:
		c.HairFlip = arc
		c.Override, c.OverrideIntensity = OverrideHappy, 0.5
	case GesturePout:
		c.Override, c.OverrideIntensity = OverridePout, arc
	case GestureWink:
		c.Override, c.OverrideIntensity = OverrideWink, arc
	case GestureBlush:
		c.Override, c.OverrideIntensity = OverrideBlush, arc
	case GestureSurprise:
		c.Override, c.OverrideIntensity = OverrideSurprised, arc
		c.JumpHeight = arc * 0.08
		c.SpinJiggle = math.Sin(p*math.Pi*4) * 0.02 * (1 - p)
	}
	return c
}

// GestureMachine plays at most one gesture at a time. Requests made while
// a gesture is playing are dropped.
type GestureMachine struct {
	kind     GestureKind
	active   bool
	progress float64

	shortSpeed float64
	longSpeed  float64
}

func NewGestureMachine() *GestureMachine {
	return &GestureMachine{
		shortSpeed: DefaultShortGestureSpeed,
		longSpeed:  DefaultLongGestureSpeed,
	}
}

// SetSpeeds sets the progress rate (per second) for short and long gestures.
func (m *GestureMachine) SetSpeeds(short, long float64) {
	if short > 0 {
		m.shortSpeed = short
	}
	if long > 0 {
		m.longSpeed = long
	}
}

// Request starts g if nothing is playing. Unknown kinds are refused.
func (m *GestureMachine) Request(g GestureKind) bool {
	if m.active || !g.Known() {
		return false
	}
	m.kind = g
	m.active = true
	m.progress = 0
	return true
}

func (m *GestureMachine) Active() (GestureKind, bool) {
	return m.kind, m.active
}

func (m *GestureMachine) Progress() float64 {
	return m.progress
}

func (m *GestureMachine) speed() float64 {
	if m.kind.Long() {
		return m.longSpeed
	}
	return m.shortSpeed
}

// Advance moves the active gesture forward by dt. completed is true on
// the single frame where progress reaches 1; the machine is idle after it.
func (m *GestureMachine) Advance(dt float64) (c GestureContribution, completed GestureKind, done bool) {
	if !m.active {
		return GestureContribution{}, "", false
	}
	m.progress += dt * m.speed()
	p := math.Min(m.progress, 1)
	c = ContributionsAt(m.kind, p)

	if p >= 1 {
		// A full turn is the identity, so the last frame lands on 0.
		c.SpinAngle = 0
		completed = m.kind
		m.Reset()
		return c, completed, true
	}
	return c, "", false
}

func (m *GestureMachine) Reset() {
	m.kind = ""
	m.active = false
	m.progress = 0
}

// GestureSmoother damps gesture output so starts and stops ease. The spin
// angle passes through untouched: damping across the 2π to 0 reset would
// play as a reverse spin.
type GestureSmoother struct {
	state  GestureContribution
	lambda float64
}

func NewGestureSmoother(lambda float64) *GestureSmoother {
	if lambda <= 0 {
		lambda = DefaultGestureSmoothing
	}
	return &GestureSmoother{lambda: lambda}
}

func (s *GestureSmoother) Advance(dt float64, target GestureContribution) GestureContribution {
	st := &s.state
	st.SpinAngle = target.SpinAngle
	st.JumpHeight = Damp(st.JumpHeight, target.JumpHeight, s.lambda, dt)
	st.ArmWave = Damp(st.ArmWave, target.ArmWave, s.lambda, dt)
	st.Bow = Damp(st.Bow, target.Bow, s.lambda, dt)
	st.BlowKiss = Damp(st.BlowKiss, target.BlowKiss, s.lambda, dt)
	st.HairFlip = Damp(st.HairFlip, target.HairFlip, s.lambda, dt)
	st.Dance = Damp(st.Dance, target.Dance, s.lambda, dt)
	st.KneeBend = Damp(st.KneeBend, target.KneeBend, s.lambda, dt)
	st.SpinJiggle = Damp(st.SpinJiggle, target.SpinJiggle, s.lambda, dt)
	st.Override = target.Override
	st.OverrideIntensity = target.OverrideIntensity
	return *st
}

func (s *GestureSmoother) Reset() {
	s.state = GestureContribution{}
}
