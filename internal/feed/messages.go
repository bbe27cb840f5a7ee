package feed

import (
	"encoding/json"
	"time"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
	"github.com/kenhendricks00/ai-companion/internal/bus"
)

// MessageType identifies a feed message in either direction.
type MessageType string

const (
	// Client to server
	MessageTypeEmotion   MessageType = "emotion"
	MessageTypeGesture   MessageType = "gesture"
	MessageTypeMouth     MessageType = "mouth"
	MessageTypeAffection MessageType = "affection"
	MessageTypeYOffset   MessageType = "y_offset"
	MessageTypeSpeak     MessageType = "speak"
	MessageTypeStop      MessageType = "stop"
	MessageTypeSay       MessageType = "say"

	// Server to client
	MessageTypeHello MessageType = "hello"
	MessageTypeFrame MessageType = "frame"
	MessageTypeEvent MessageType = "event"
	MessageTypeAck   MessageType = "ack"
	MessageTypeError MessageType = "error"
)

// Command is an inbound control message. Only the fields its type needs
// are read.
type Command struct {
	Type       MessageType        `json:"type"`
	Emotion    string             `json:"emotion,omitempty"`
	Gesture    string             `json:"gesture,omitempty"`
	Weights    map[string]float64 `json:"weights,omitempty"`
	Value      float64            `json:"value,omitempty"`
	Text       string             `json:"text,omitempty"`
	DurationMs float64            `json:"duration_ms,omitempty"`
}

// Outbound is every message the server sends.
type Outbound struct {
	Type      MessageType        `json:"type"`
	Timestamp string             `json:"timestamp"`
	ClientID  string             `json:"client_id,omitempty"`
	Frame     *avatar3d.Snapshot `json:"frame,omitempty"`
	Event     *bus.Event         `json:"event,omitempty"`
	Command   MessageType        `json:"command,omitempty"`
	Accepted  *bool              `json:"accepted,omitempty"`
	Utterance string             `json:"utterance,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func newOutbound(t MessageType) Outbound {
	return Outbound{Type: t, Timestamp: time.Now().Format(time.RFC3339Nano)}
}

func encode(m Outbound) ([]byte, error) {
	return json.Marshal(m)
}
