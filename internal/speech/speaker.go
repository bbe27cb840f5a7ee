package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Voice          string
	Speed          float64
	WordsPerMinute float64
}

func DefaultConfig() Config {
	return Config{
		Voice:          DefaultVoice,
		Speed:          DefaultSpeed,
		WordsPerMinute: DefaultWordsPerMinute,
	}
}

// Speaker runs one utterance at a time: synthesize, start lip sync when
// playback starts, silence the mouth when it ends or fails.
type Speaker struct {
	synth  Synthesizer
	player Player
	lips   LipSync
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

func NewSpeaker(synth Synthesizer, player Player, lips LipSync, cfg Config, logger zerolog.Logger) *Speaker {
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = DefaultWordsPerMinute
	}
	if synth == nil {
		synth = SilentSynthesizer{WordsPerMinute: cfg.WordsPerMinute}
	}
	if player == nil {
		player = ClockPlayer{}
	}
	return &Speaker{
		synth:  synth,
		player: player,
		lips:   lips,
		cfg:    cfg,
		logger: logger.With().Str("component", "speech").Logger(),
	}
}

// Speak blocks until text has been spoken. A later Speak or Stop cuts it
// off, in which case ErrStopped is returned.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.seq == seq {
			s.cancel = nil
			s.lips.StopSpeaking()
		}
		s.mu.Unlock()
	}()

	u, err := s.synth.Synthesize(ctx, &Request{Text: text, Voice: s.cfg.Voice, Speed: s.cfg.Speed})
	if err != nil {
		return s.finish(ctx, fmt.Errorf("synthesize: %w", err))
	}

	duration := u.Duration
	if duration <= 0 {
		duration = EstimateDuration(text, s.cfg.WordsPerMinute)
	}

	start := time.Now()
	err = s.player.Play(ctx, u, func() {
		id := s.lips.Speak(text, float64(duration.Milliseconds()))
		s.logger.Debug().Str("utterance", id).Dur("duration", duration).Msg("playback started")
	})
	if err != nil {
		return s.finish(ctx, fmt.Errorf("play: %w", err))
	}

	s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("playback finished")
	return nil
}

func (s *Speaker) finish(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return ErrStopped
	}
	s.logger.Warn().Err(err).Msg("speech failed")
	return err
}

// Stop cuts off the current utterance, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.lips.StopSpeaking()
}
