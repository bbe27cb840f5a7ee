package avatar3d

import "sort"

// Expression channel names as exposed by VRM humanoid models.
const (
	ExprNeutral    = "neutral"
	ExprHappy      = "happy"
	ExprSad        = "sad"
	ExprAngry      = "angry"
	ExprSurprised  = "surprised"
	ExprRelaxed    = "relaxed"
	ExprPout       = "pout"
	ExprBlush      = "blush"
	ExprBlink      = "blink"
	ExprBlinkLeft  = "blinkLeft"
	ExprBlinkRight = "blinkRight"

	ExprLookLeft  = "lookLeft"
	ExprLookRight = "lookRight"
	ExprLookUp    = "lookUp"
	ExprLookDown  = "lookDown"

	ExprBrowInnerUp    = "browInnerUp"
	ExprBrowDown       = "browDown"
	ExprEyeSquintLeft  = "eyeSquintLeft"
	ExprEyeSquintRight = "eyeSquintRight"
)

// resetChannels are zeroed at the start of every expression pass.
var resetChannels = []string{
	ExprSad, ExprAngry, ExprSurprised, ExprRelaxed, ExprNeutral,
	ExprBlinkLeft, ExprBlinkRight, ExprBlink,
	ExprHappy, ExprPout, ExprBlush,
	ExprBrowInnerUp, ExprBrowDown, ExprEyeSquintLeft, ExprEyeSquintRight,
}

// ExpressionWeights is one frame's resolved expression state. Later
// writes to the same name replace earlier ones.
type ExpressionWeights map[string]float64

func (w ExpressionWeights) Set(name string, v float64) {
	w[name] = clamp(v, 0, 1)
}

func (w ExpressionWeights) Get(name string) float64 {
	return w[name]
}

// Names returns the written channel names in sorted order.
func (w ExpressionWeights) Names() []string {
	names := make([]string, 0, len(w))
	for k := range w {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (w ExpressionWeights) Clone() ExpressionWeights {
	out := make(ExpressionWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
