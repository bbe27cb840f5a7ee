package chat

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
	"github.com/kenhendricks00/ai-companion/internal/bus"
	"github.com/kenhendricks00/ai-companion/internal/trigger"
)

// Avatar is what a session drives.
type Avatar interface {
	SetEmotion(e avatar3d.Emotion)
	RequestGesture(g avatar3d.GestureKind) bool
}

// Speaker voices a cleaned reply. Speak blocks until playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

type SessionConfig struct {
	SystemPrompt string
	HistoryLimit int
	// SettleDelay is how long the reply's emotion lingers after speech
	// before the avatar relaxes to neutral.
	SettleDelay time.Duration
}

// Reply is the outcome of one exchange.
type Reply struct {
	Text    string               `json:"text"`
	Raw     string               `json:"raw"`
	Emotion avatar3d.Emotion     `json:"emotion"`
	Gesture avatar3d.GestureKind `json:"gesture,omitempty"`
}

// bracketPattern removes every bracketed prompt artifact, not only the
// known emotion tags.
var bracketPattern = regexp.MustCompile(`\[.*?\]`)

// Session holds a conversation and routes a streamed reply to the avatar:
// emotion follows the text as it arrives, gestures fire from keywords in
// either side of the exchange, and the cleaned reply is spoken.
type Session struct {
	streamer   Streamer
	classifier trigger.Classifier
	avatar     Avatar
	speaker    Speaker
	events     *bus.EventBus
	cfg        SessionConfig
	logger     zerolog.Logger

	mu      sync.Mutex
	history []Message
	settle  *time.Timer
}

func NewSession(streamer Streamer, classifier trigger.Classifier, avatar Avatar, speaker Speaker, events *bus.EventBus, cfg SessionConfig, logger zerolog.Logger) *Session {
	if classifier == nil {
		classifier = trigger.NewKeywordClassifier()
	}
	if events == nil {
		events = bus.NewEventBus()
	}
	return &Session{
		streamer:   streamer,
		classifier: classifier,
		avatar:     avatar,
		speaker:    speaker,
		events:     events,
		cfg:        cfg,
		logger:     logger.With().Str("component", "session").Logger(),
	}
}

// Send runs one exchange. It returns once the reply has been spoken.
func (s *Session) Send(ctx context.Context, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.cancelSettle()
	s.avatar.SetEmotion(avatar3d.EmotionThinking)
	if g := s.classifier.Gesture(text); g != "" {
		s.requestGesture(g)
	}

	msgs := s.prompt(Message{Role: RoleUser, Content: text})

	var partial strings.Builder
	current := avatar3d.EmotionThinking
	raw, err := s.streamer.Stream(ctx, msgs, func(token string) {
		partial.WriteString(token)
		if e := s.classifier.Emotion(partial.String()); e != current && e != avatar3d.EmotionNeutral {
			current = e
			s.avatar.SetEmotion(e)
		}
		s.events.Publish(bus.Event{Type: bus.EventTypeChatToken, Data: map[string]any{"token": token}})
	})
	if err != nil {
		s.avatar.SetEmotion(avatar3d.EmotionSad)
		s.events.Publish(bus.Event{Type: bus.EventTypeChatError, Data: map[string]any{"error": err.Error()}})
		s.logger.Warn().Err(err).Msg("chat failed")
		return nil, err
	}

	reply := &Reply{
		Raw:     raw,
		Text:    cleanReply(raw),
		Emotion: s.classifier.Emotion(raw),
		Gesture: s.classifier.Gesture(raw),
	}
	s.avatar.SetEmotion(reply.Emotion)
	if reply.Gesture != "" {
		s.requestGesture(reply.Gesture)
	}

	s.remember(Message{Role: RoleUser, Content: text}, Message{Role: RoleAssistant, Content: reply.Text})
	s.events.Publish(bus.Event{Type: bus.EventTypeChatComplete, Data: map[string]any{
		"text":    reply.Text,
		"emotion": string(reply.Emotion),
	}})

	if reply.Text != "" && s.speaker != nil {
		s.events.Publish(bus.Event{Type: bus.EventTypeSpeakingStarted, Data: map[string]any{"text": reply.Text}})
		if err := s.speaker.Speak(ctx, reply.Text); err != nil {
			s.logger.Warn().Err(err).Msg("speech failed")
		}
	}
	s.scheduleSettle()
	return reply, nil
}

// Clear forgets the conversation and resets the avatar's mood.
func (s *Session) Clear() {
	s.cancelSettle()
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
	if s.speaker != nil {
		s.speaker.Stop()
	}
	s.avatar.SetEmotion(avatar3d.EmotionNeutral)
}

// History returns a copy of the remembered exchange.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

func (s *Session) requestGesture(g avatar3d.GestureKind) {
	if s.avatar.RequestGesture(g) {
		s.logger.Debug().Str("gesture", string(g)).Msg("gesture requested")
	}
}

func (s *Session) prompt(next Message) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]Message, 0, len(s.history)+2)
	if s.cfg.SystemPrompt != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: s.cfg.SystemPrompt})
	}
	msgs = append(msgs, s.history...)
	return append(msgs, next)
}

func (s *Session) remember(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, msgs...)
	if limit := s.cfg.HistoryLimit; limit > 0 && len(s.history) > limit {
		s.history = append([]Message(nil), s.history[len(s.history)-limit:]...)
	}
}

func (s *Session) scheduleSettle() {
	if s.cfg.SettleDelay <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle = time.AfterFunc(s.cfg.SettleDelay, func() {
		s.avatar.SetEmotion(avatar3d.EmotionNeutral)
	})
}

func (s *Session) cancelSettle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}
}

func cleanReply(raw string) string {
	return trigger.CleanTags(bracketPattern.ReplaceAllString(raw, ""))
}
