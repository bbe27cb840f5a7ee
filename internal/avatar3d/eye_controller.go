package avatar3d

import (
	"math"
	"math/rand"
)

const (
	blinkDuration     = 0.12 // seconds, open -> closed -> open
	blinkRelease      = 12
	gazeSmoothing     = 6
	speakingBlinkRate = 1.5
)

// GazeTarget is a gaze direction. Positive X looks to the model's left,
// positive Y looks up.
type GazeTarget struct {
	X float64
	Y float64
}

// EyeFrame is the eye state for one frame.
type EyeFrame struct {
	Blink      float64
	Suppressed bool // blink left to another layer (wink)
	Gaze       GazeTarget
}

// EyeController runs randomized blinking and saccadic gaze. The random
// source is injected so tests can replay a sequence.
type EyeController struct {
	rng *rand.Rand

	blinkCooldown float64
	blinkPhase    float64
	blinkWeight   float64
	blinking      bool

	gazeTarget  GazeTarget
	currentGaze GazeTarget
	nextLook    float64
}

func NewEyeController(rng *rand.Rand) *EyeController {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	ec := &EyeController{rng: rng}
	ec.Reset()
	return ec
}

func (ec *EyeController) randRange(lo, hi float64) float64 {
	return lo + ec.rng.Float64()*(hi-lo)
}

func (ec *EyeController) randSpread(r float64) float64 {
	return r * (0.5 - ec.rng.Float64())
}

// Advance steps blink and gaze. speaking shortens blink intervals;
// suppressBlink freezes the blink cycle while a wink owns the eyelids;
// excitement speeds up saccades and widens their spread.
func (ec *EyeController) Advance(dt float64, speaking, suppressBlink bool, excitement float64) EyeFrame {
	frame := EyeFrame{Suppressed: suppressBlink}
	if !suppressBlink {
		frame.Blink = ec.updateBlink(dt, speaking)
	}
	ec.updateSaccade(dt, excitement)
	ec.currentGaze.X = Damp(ec.currentGaze.X, ec.gazeTarget.X, gazeSmoothing, dt)
	ec.currentGaze.Y = Damp(ec.currentGaze.Y, ec.gazeTarget.Y, gazeSmoothing, dt)
	frame.Gaze = ec.currentGaze
	return frame
}

func (ec *EyeController) updateBlink(dt float64, speaking bool) float64 {
	rate := 1.0
	if speaking {
		rate = speakingBlinkRate
	}
	ec.blinkCooldown -= dt * rate

	if !ec.blinking && ec.blinkCooldown <= 0 {
		ec.blinking = true
		ec.blinkPhase = 0
	}

	if ec.blinking {
		ec.blinkPhase += dt / blinkDuration
		ec.blinkWeight = math.Sin(clamp(ec.blinkPhase, 0, 1) * math.Pi)
		if ec.blinkPhase >= 1 {
			ec.blinking = false
			ec.blinkCooldown = ec.randRange(2.5, 5.5)
		}
	} else {
		ec.blinkWeight = Damp(ec.blinkWeight, 0, blinkRelease, dt)
	}
	return ec.blinkWeight
}

func (ec *EyeController) updateSaccade(dt, excitement float64) {
	ec.nextLook -= dt / (0.7 + excitement*0.6)
	if ec.nextLook > 0 {
		return
	}
	ampX := 0.3 + 0.1*excitement
	ampY := 0.2 + 0.08*excitement
	ec.gazeTarget = GazeTarget{X: ec.randSpread(ampX * 2), Y: ec.randSpread(ampY * 2)}
	ec.nextLook = ec.randRange(0.8, 1.6)
}

// TriggerBlink starts a blink on the next frame.
func (ec *EyeController) TriggerBlink() {
	if !ec.blinking {
		ec.blinkCooldown = 0
	}
}

func (ec *EyeController) Blinking() bool {
	return ec.blinking
}

func (ec *EyeController) Reset() {
	ec.blinkCooldown = ec.randRange(2.5, 5.0)
	ec.blinkPhase = 0
	ec.blinkWeight = 0
	ec.blinking = false
	ec.gazeTarget = GazeTarget{}
	ec.currentGaze = GazeTarget{}
	ec.nextLook = ec.randRange(0.8, 2.0)
}

// applyGaze writes gaze as the four one-sided look channels.
func applyGaze(w ExpressionWeights, g GazeTarget) {
	w.Set(ExprLookLeft, math.Max(0, g.X))
	w.Set(ExprLookRight, math.Max(0, -g.X))
	w.Set(ExprLookUp, math.Max(0, g.Y))
	w.Set(ExprLookDown, math.Max(0, -g.Y))
}
