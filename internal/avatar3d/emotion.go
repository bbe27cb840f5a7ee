package avatar3d

import (
	"fmt"
	"math"
	"strings"
)

type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionSurprised Emotion = "surprised"
	EmotionBlush     Emotion = "blush"
	EmotionExcited   Emotion = "excited"
	EmotionPout      Emotion = "pout"
	EmotionLove      Emotion = "love"
	EmotionThinking  Emotion = "thinking"
)

// AllEmotions in declaration order.
var AllEmotions = []Emotion{
	EmotionNeutral, EmotionHappy, EmotionSad, EmotionAngry, EmotionSurprised,
	EmotionBlush, EmotionExcited, EmotionPout, EmotionLove, EmotionThinking,
}

// emotionExpressions maps each emotion to the model expressions it drives.
// Some entries share a mouth shape ("aa", "ou") with lip sync; lip sync is
// applied later in the frame and overwrites them.
var emotionExpressions = map[Emotion][]string{
	EmotionNeutral:   {ExprNeutral},
	EmotionHappy:     {ExprHappy, "joy"},
	EmotionSad:       {ExprSad, "sorrow"},
	EmotionAngry:     {ExprAngry},
	EmotionSurprised: {ExprSurprised},
	EmotionBlush:     {ExprRelaxed, ExprHappy},
	EmotionExcited:   {ExprHappy, string(VisemeAA)},
	EmotionPout:      {ExprAngry, string(VisemeOU)},
	EmotionLove:      {ExprRelaxed, ExprHappy},
	EmotionThinking:  {ExprNeutral},
}

func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := emotionExpressions[e]; !ok {
		return EmotionNeutral, fmt.Errorf("unknown emotion %q", s)
	}
	return e, nil
}

// Expressions returns the expression names driven by e.
func (e Emotion) Expressions() []string {
	return emotionExpressions[e]
}

// Energetic reports whether e should push idle motion toward excitement.
func (e Emotion) Energetic() bool {
	return e == EmotionExcited || e == EmotionHappy || e == EmotionLove
}

// EmotionIntensity scales an emotion by affection (0..100). The result
// never exceeds 1.
func EmotionIntensity(e Emotion, affection float64) float64 {
	a := clamp(affection, 0, 100) / 100
	base := 0.7 + a*0.3

	mult := 1.0
	switch e {
	case EmotionHappy:
		mult = 1 + a*0.5
	case EmotionAngry:
		mult = 0.8
	case EmotionBlush:
		mult = 1 + a*0.8
	case EmotionExcited:
		mult = 1 + a*0.6
	case EmotionLove:
		mult = 0.5 + a
	}
	return math.Min(1, base*mult)
}

// EmotionTracker fades a newly set emotion in over roughly a third of
// a second.
type EmotionTracker struct {
	current    Emotion
	transition float64
	rate       float64
}

func NewEmotionTracker(rate float64) *EmotionTracker {
	if rate <= 0 {
		rate = 3
	}
	return &EmotionTracker{current: EmotionNeutral, transition: 1, rate: rate}
}

// Advance observes the requested emotion and ramps the transition blend.
// It returns true when the emotion changed on this frame.
func (t *EmotionTracker) Advance(dt float64, e Emotion) bool {
	changed := e != t.current
	if changed {
		t.current = e
		t.transition = 0
	}
	t.transition = math.Min(1, t.transition+dt*t.rate)
	return changed
}

func (t *EmotionTracker) Current() Emotion    { return t.current }
func (t *EmotionTracker) Transition() float64 { return t.transition }

func (t *EmotionTracker) Reset() {
	t.current = EmotionNeutral
	t.transition = 1
}
