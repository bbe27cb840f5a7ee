package avatar3d

import "math"

// FaceInputs is everything the expression pass reads for one frame.
type FaceInputs struct {
	Emotion    Emotion
	Transition float64
	Affection  float64

	Gesture GestureContribution
	Eyes    EyeFrame

	// TalkTime drives the talking micro-expressions while Speaking.
	Speaking bool
	TalkTime float64

	Mouth MouthWeights
}

// ExpressionMixer resolves a frame's expression weights in a fixed order:
// reset, ambient eyes and talk, emotion or gesture override, mouth.
// Later layers overwrite earlier ones on shared names, so an emotion that
// uses a mouth shape ("excited" opens "aa") loses it to lip sync.
type ExpressionMixer struct {
	// supports reports whether the model has an expression. nil means
	// assume everything is supported.
	supports func(name string) bool
}

func NewExpressionMixer(supports func(name string) bool) *ExpressionMixer {
	return &ExpressionMixer{supports: supports}
}

func (m *ExpressionMixer) has(name string) bool {
	return m.supports == nil || m.supports(name)
}

func (m *ExpressionMixer) Resolve(in FaceInputs) ExpressionWeights {
	w := make(ExpressionWeights, 32)

	for _, name := range resetChannels {
		w[name] = 0
	}

	if !in.Eyes.Suppressed {
		w.Set(ExprBlink, in.Eyes.Blink)
	}
	applyGaze(w, in.Eyes.Gaze)
	if in.Speaking {
		applyTalk(w, in.TalkTime, in.Transition)
	}

	if in.Gesture.OverrideActive() {
		m.applyOverride(w, in.Gesture.Override, in.Gesture.OverrideIntensity, in.Affection)
	} else {
		applyEmotion(w, in.Emotion, in.Transition, in.Affection)
	}

	for i, shape := range MouthShapes {
		w.Set(string(shape), in.Mouth[i])
	}
	return w
}

func applyEmotion(w ExpressionWeights, e Emotion, weight, affection float64) {
	intensity := EmotionIntensity(e, affection) * weight
	for _, name := range e.Expressions() {
		w.Set(name, intensity)
	}
}

func (m *ExpressionMixer) applyOverride(w ExpressionWeights, o ExpressionOverride, i, affection float64) {
	switch o {
	case OverrideWink:
		if m.has(ExprBlinkLeft) {
			w.Set(ExprBlinkLeft, i)
			w.Set(ExprBlinkRight, 0)
		} else {
			w.Set(ExprBlink, i*0.5)
		}
		applyEmotion(w, EmotionHappy, i*0.6, affection)
	case OverrideExcited:
		applyEmotion(w, EmotionHappy, i, affection)
		w.Set(ExprBlink, i*0.8)
	default:
		applyEmotion(w, Emotion(o), i, affection)
	}
}

// applyTalk adds the brow, squint and smile variation that keeps a
// speaking face from looking frozen.
func applyTalk(w ExpressionWeights, t, transition float64) {
	phase := t * 2
	w.Set(ExprBrowInnerUp, math.Sin(phase*1.5)*0.15+0.1)
	w.Set(ExprBrowDown, math.Max(0, math.Sin(phase*0.8+1)*0.1))
	squint := math.Abs(math.Sin(phase*1.2)) * 0.15
	w.Set(ExprEyeSquintLeft, squint)
	w.Set(ExprEyeSquintRight, squint)
	w.Set(ExprHappy, (math.Sin(phase*0.7)*0.1+0.15)*transition)
}
