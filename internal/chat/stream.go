// Package chat streams replies from an OpenAI-compatible chat backend and
// turns them into avatar emotion, gestures and speech.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrEmptyReply   = errors.New("backend returned an empty reply")
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Streamer produces a reply token by token. It returns the full reply.
type Streamer interface {
	Stream(ctx context.Context, msgs []Message, onToken func(string)) (string, error)
}

// OpenAIStreamer talks to any OpenAI-compatible endpoint, including
// Ollama's /v1 API.
type OpenAIStreamer struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

func NewOpenAIStreamer(baseURL, apiKey, model string, timeout time.Duration, logger zerolog.Logger) *OpenAIStreamer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := openai.NewClient(opts...)
	return &OpenAIStreamer{
		client: &client,
		model:  model,
		logger: logger.With().Str("component", "chat").Str("model", model).Logger(),
	}
}

func toParams(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (s *OpenAIStreamer) Stream(ctx context.Context, msgs []Message, onToken func(string)) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: toParams(msgs),
	}

	stream := s.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("failed to close stream")
		}
	}()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if token := chunk.Choices[0].Delta.Content; token != "" {
			full.WriteString(token)
			if onToken != nil {
				onToken(token)
			}
		}
	}
	if err := stream.Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return full.String(), fmt.Errorf("context cancelled: %w", err)
		}
		return full.String(), fmt.Errorf("stream error: %w", err)
	}
	if full.Len() == 0 {
		return "", ErrEmptyReply
	}
	return full.String(), nil
}
