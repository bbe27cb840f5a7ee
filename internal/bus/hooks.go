package bus

import (
	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
)

// AvatarHooks returns avatar hooks that republish every avatar callback on
// b. Hooks run on the frame goroutine, so they publish asynchronously.
func AvatarHooks(b *EventBus) avatar3d.Hooks {
	return avatar3d.Hooks{
		OnGestureStart: func(g avatar3d.GestureKind) {
			b.Publish(Event{Type: EventTypeGestureStarted, Data: map[string]any{"gesture": string(g)}})
		},
		OnGestureComplete: func(g avatar3d.GestureKind) {
			b.Publish(Event{Type: EventTypeGestureCompleted, Data: map[string]any{"gesture": string(g)}})
		},
		OnGestureDropped: func(g avatar3d.GestureKind) {
			b.Publish(Event{Type: EventTypeGestureDropped, Data: map[string]any{"gesture": string(g)}})
		},
		OnEmotionChanged: func(e avatar3d.Emotion) {
			b.Publish(Event{Type: EventTypeEmotionChanged, Data: map[string]any{"emotion": string(e)}})
		},
		OnModelLoaded: func() {
			b.Publish(Event{Type: EventTypeModelLoaded})
		},
		OnError: func(err error) {
			b.Publish(Event{Type: EventTypeModelError, Data: map[string]any{"error": err.Error()}})
		},
		OnViseme: func(utterance string, v avatar3d.Viseme) {
			b.Publish(Event{Type: EventTypeViseme, Data: map[string]any{"utterance": utterance, "viseme": string(v)}})
		},
		OnSpeechDone: func(utterance string) {
			b.Publish(Event{Type: EventTypeSpeakingStopped, Data: map[string]any{"utterance": utterance}})
		},
	}
}
