// Package speech sequences synthesized speech playback with the avatar's
// lip sync.
package speech

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyText = errors.New("nothing to speak")
	ErrStopped   = errors.New("speech stopped")
)

const (
	DefaultWordsPerMinute = 150
	DefaultVoice          = "af_heart"
	DefaultSpeed          = 1.2
)

// Request is one line of text to synthesize.
type Request struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed,omitempty"`
}

// Utterance is synthesized audio ready for playback. Duration may be zero
// when the synthesizer cannot tell; the speaker then estimates it.
type Utterance struct {
	Text     string        `json:"text"`
	Audio    []byte        `json:"-"`
	Format   string        `json:"format,omitempty"`
	Voice    string        `json:"voice"`
	Duration time.Duration `json:"duration"`
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *Request) (*Utterance, error)
}

// Player plays an utterance. It calls onStart once audio is actually
// audible and returns when playback finishes or ctx is done.
type Player interface {
	Play(ctx context.Context, u *Utterance, onStart func()) error
}

// LipSync is the part of the avatar the speaker drives.
type LipSync interface {
	Speak(text string, durationMs float64) string
	StopSpeaking()
}

// EstimateDuration guesses how long text takes to say at wpm words per
// minute.
func EstimateDuration(text string, wpm float64) time.Duration {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return time.Duration(float64(words) * float64(time.Minute) / wpm)
}
