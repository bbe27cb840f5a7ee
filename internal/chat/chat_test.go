package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
)

type scriptedStreamer struct {
	tokens []string
	err    error
	got    [][]Message
}

func (s *scriptedStreamer) Stream(_ context.Context, msgs []Message, onToken func(string)) (string, error) {
	s.got = append(s.got, msgs)
	if s.err != nil {
		return "", s.err
	}
	for _, tok := range s.tokens {
		onToken(tok)
	}
	return strings.Join(s.tokens, ""), nil
}

type recordingAvatar struct {
	mu       sync.Mutex
	emotions []avatar3d.Emotion
	gestures []avatar3d.GestureKind
}

func (a *recordingAvatar) SetEmotion(e avatar3d.Emotion) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emotions = append(a.emotions, e)
}

func (a *recordingAvatar) RequestGesture(g avatar3d.GestureKind) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gestures = append(a.gestures, g)
	return true
}

func (a *recordingAvatar) last() avatar3d.Emotion {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emotions[len(a.emotions)-1]
}

type recordingSpeaker struct {
	spoken []string
	stops  int
}

func (s *recordingSpeaker) Speak(_ context.Context, text string) error {
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *recordingSpeaker) Stop() { s.stops++ }

func newSession(st Streamer, av *recordingAvatar, sp *recordingSpeaker, cfg SessionConfig) *Session {
	return NewSession(st, nil, av, sp, nil, cfg, zerolog.Nop())
}

func TestSendDrivesAvatar(t *testing.T) {
	st := &scriptedStreamer{tokens: []string{"[happy] ", "Sure, ", "watch me spin! ", "[LIKE]"}}
	av := &recordingAvatar{}
	sp := &recordingSpeaker{}
	s := newSession(st, av, sp, SessionConfig{SystemPrompt: "be nice"})

	reply, err := s.Send(context.Background(), "hello!")
	require.NoError(t, err)

	assert.Equal(t, "Sure, watch me spin!", reply.Text)
	assert.Equal(t, avatar3d.EmotionHappy, reply.Emotion)
	assert.Equal(t, avatar3d.GestureSpin, reply.Gesture)

	assert.Equal(t, avatar3d.EmotionThinking, av.emotions[0])
	assert.Contains(t, av.emotions, avatar3d.EmotionHappy)
	assert.Equal(t, []avatar3d.GestureKind{avatar3d.GestureWave, avatar3d.GestureSpin}, av.gestures)
	assert.Equal(t, []string{"Sure, watch me spin!"}, sp.spoken)

	require.Len(t, st.got, 1)
	assert.Equal(t, Message{Role: RoleSystem, Content: "be nice"}, st.got[0][0])
	assert.Equal(t, Message{Role: RoleUser, Content: "hello!"}, st.got[0][1])
}

func TestSendCarriesHistory(t *testing.T) {
	st := &scriptedStreamer{tokens: []string{"ok"}}
	s := newSession(st, &recordingAvatar{}, &recordingSpeaker{}, SessionConfig{HistoryLimit: 2})

	for i := 0; i < 3; i++ {
		_, err := s.Send(context.Background(), fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, "msg 2", h[0].Content)
	assert.Equal(t, RoleAssistant, h[1].Role)
	assert.Len(t, st.got[2], 3)
}

func TestSendRejectsEmpty(t *testing.T) {
	s := newSession(&scriptedStreamer{}, &recordingAvatar{}, &recordingSpeaker{}, SessionConfig{})
	_, err := s.Send(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendFailureSaddens(t *testing.T) {
	av := &recordingAvatar{}
	sp := &recordingSpeaker{}
	s := newSession(&scriptedStreamer{err: errors.New("offline")}, av, sp, SessionConfig{})

	_, err := s.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, avatar3d.EmotionSad, av.last())
	assert.Empty(t, sp.spoken)
	assert.Empty(t, s.History())
}

func TestSettleReturnsToNeutral(t *testing.T) {
	av := &recordingAvatar{}
	s := newSession(&scriptedStreamer{tokens: []string{"[pout] no."}}, av, &recordingSpeaker{}, SessionConfig{SettleDelay: 10 * time.Millisecond})

	_, err := s.Send(context.Background(), "please")
	require.NoError(t, err)
	assert.Equal(t, avatar3d.EmotionPout, av.last())

	assert.Eventually(t, func() bool { return av.last() == avatar3d.EmotionNeutral }, time.Second, 5*time.Millisecond)
}

func TestClear(t *testing.T) {
	av := &recordingAvatar{}
	sp := &recordingSpeaker{}
	s := newSession(&scriptedStreamer{tokens: []string{"ok"}}, av, sp, SessionConfig{})
	_, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)

	s.Clear()
	assert.Empty(t, s.History())
	assert.Equal(t, 1, sp.stops)
	assert.Equal(t, avatar3d.EmotionNeutral, av.last())
}

func sseServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestOpenAIStreamer(t *testing.T) {
	srv := sseServer(t, "Hel", "lo ", "[happy]")
	defer srv.Close()

	st := NewOpenAIStreamer(srv.URL+"/v1", "test", "m", 5*time.Second, zerolog.Nop())

	var tokens []string
	full, err := st.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, func(tok string) {
		tokens = append(tokens, tok)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello [happy]", full)
	assert.Equal(t, []string{"Hel", "lo ", "[happy]"}, tokens)
}

func TestOpenAIStreamerEmptyReply(t *testing.T) {
	srv := sseServer(t)
	defer srv.Close()

	st := NewOpenAIStreamer(srv.URL+"/v1/", "test", "m", 0, zerolog.Nop())
	_, err := st.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	assert.ErrorIs(t, err, ErrEmptyReply)
}
