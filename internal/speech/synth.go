package speech

import (
	"context"
	"strings"
)

// SilentSynthesizer produces no audio, only a duration estimate. It keeps
// lip sync working when no TTS engine is configured.
type SilentSynthesizer struct {
	WordsPerMinute float64
}

func (s SilentSynthesizer) Synthesize(ctx context.Context, req *Request) (*Utterance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	d := EstimateDuration(text, s.WordsPerMinute)
	if req.Speed > 0 {
		d = scaleDuration(d, 1/req.Speed)
	}
	return &Utterance{Text: text, Voice: req.Voice, Duration: d}, nil
}
