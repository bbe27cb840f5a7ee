package avatar3d

import (
	"math"

	"github.com/aquilax/go-perlin"
)

const (
	DefaultExcitementRate = 3

	perlinAlpha = 2
	perlinBeta  = 2
	perlinN     = 3
)

// IdleFrame is the ambient body motion for one frame. Every field is an
// offset added to the base pose.
type IdleFrame struct {
	Excitement float64

	BreathChest  float64
	BreathSpineY float64

	SwayZ float64
	SwayX float64

	HeadX float64
	HeadY float64

	HopHeight   float64
	Yaw         float64
	ChestBounce float64

	ArmWave      float64
	ArmBounce    float64
	LowerArmWave float64

	LegKick  float64
	KneeBend float64
}

// IdleMotion runs the continuous breathing, sway, bounce and arm cycles.
// Frequency and amplitude of every cycle grow with the excitement blend.
type IdleMotion struct {
	breathPhase float64
	swayPhase   float64
	bouncePhase float64
	hopPhase    float64
	spinPhase   float64
	armPhase    float64
	time        float64

	excitement DampedScalar

	seed     int64
	noiseX   *perlin.Perlin
	noiseY   *perlin.Perlin
	noiseAmp float64
}

func NewIdleMotion(seed int64) *IdleMotion {
	m := &IdleMotion{
		excitement: DampedScalar{Lambda: DefaultExcitementRate},
		seed:       seed,
		noiseAmp:   0.015,
	}
	m.seedNoise()
	return m
}

func (m *IdleMotion) seedNoise() {
	m.noiseX = perlin.NewPerlin(perlinAlpha, perlinBeta, perlinN, m.seed)
	m.noiseY = perlin.NewPerlin(perlinAlpha, perlinBeta, perlinN, m.seed+1)
}

// SetExcitementRate sets how fast the excitement blend follows emotion.
func (m *IdleMotion) SetExcitementRate(rate float64) {
	if rate > 0 {
		m.excitement.Lambda = rate
	}
}

// SetNoiseAmplitude scales head micro-motion. Zero disables it.
func (m *IdleMotion) SetNoiseAmplitude(amp float64) {
	m.noiseAmp = math.Max(0, amp)
}

func (m *IdleMotion) Excitement() float64 {
	return m.excitement.Current
}

// Time is the total idle time accumulated since the last reset.
func (m *IdleMotion) Time() float64 {
	return m.time
}

func (m *IdleMotion) Advance(dt float64, energetic bool) IdleFrame {
	m.time += dt

	if energetic {
		m.excitement.Target = 1
	} else {
		m.excitement.Target = 0
	}
	blend := m.excitement.Step(dt)

	f := IdleFrame{Excitement: blend}

	m.breathPhase += dt * 1.5
	breath := math.Sin(m.breathPhase)
	f.BreathChest = breath * 0.025
	f.BreathSpineY = breath * 0.003

	m.hopPhase += dt * 4 * blend
	f.HopHeight = math.Abs(math.Sin(m.hopPhase)) * 0.05 * blend
	f.LegKick = math.Sin(m.hopPhase*2) * 0.2 * blend
	f.KneeBend = math.Abs(math.Sin(m.hopPhase)) * 0.3 * blend

	m.spinPhase += dt * 0.5 * blend
	f.Yaw = math.Sin(m.spinPhase) * 0.1 * blend

	m.bouncePhase += dt * (2 + 6*blend)
	f.ChestBounce = math.Sin(m.bouncePhase) * (0.005 + 0.025*blend)

	m.swayPhase += dt * (0.8 + 1.2*blend)
	f.SwayZ = math.Sin(m.swayPhase) * (0.02 + 0.03*blend)
	f.SwayX = math.Sin(m.swayPhase*0.7) * (0.01 + 0.02*blend)
	f.HeadX = math.Sin(m.swayPhase*0.3) * 0.05
	f.HeadY = math.Sin(m.swayPhase*0.5) * 0.08
	if m.noiseAmp > 0 {
		f.HeadX += m.noiseX.Noise1D(m.time*0.5) * m.noiseAmp
		f.HeadY += m.noiseY.Noise1D(m.time*0.4) * m.noiseAmp
	}

	m.armPhase += dt * (1.5 + 4.5*blend)
	amount := 0.03 + 0.12*blend
	f.ArmWave = math.Sin(m.armPhase) * amount
	f.ArmBounce = math.Abs(math.Sin(m.armPhase*2)) * 0.1 * blend
	f.LowerArmWave = math.Sin(m.armPhase-0.3) * (0.02 + 0.18*blend)

	return f
}

// Reset zeroes every phase. Called when a new model is attached.
func (m *IdleMotion) Reset() {
	m.breathPhase, m.swayPhase, m.bouncePhase = 0, 0, 0
	m.hopPhase, m.spinPhase, m.armPhase = 0, 0, 0
	m.time = 0
	m.excitement.Current, m.excitement.Target = 0, 0
	m.seedNoise()
}
