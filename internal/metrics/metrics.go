package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kenhendricks00/ai-companion/internal/bus"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "companion_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	FrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "companion_frame_duration_seconds",
			Help:    "Time spent advancing one animation frame",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
		},
	)

	FramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_frames_total",
			Help: "Total number of animation frames advanced",
		},
	)

	SlowFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_slow_frames_total",
			Help: "Frames whose wall-clock gap exceeded the slow-frame threshold",
		},
	)

	Gestures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_gestures_total",
			Help: "Gesture requests by outcome",
		},
		[]string{"gesture", "outcome"},
	)

	EmotionChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_emotion_changes_total",
			Help: "Emotion transitions by target emotion",
		},
		[]string{"emotion"},
	)

	ModelEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_model_events_total",
			Help: "Model loads and load failures",
		},
		[]string{"result"},
	)

	Utterances = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_utterances_total",
			Help: "Completed lip-sync utterances",
		},
	)

	ChatTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_chat_tokens_total",
			Help: "Streamed chat tokens received",
		},
	)

	ChatErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_chat_errors_total",
			Help: "Failed chat exchanges",
		},
	)

	FeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "companion_feed_clients",
			Help: "Number of connected feed clients",
		},
	)
)

// ObserveFrame records one advanced frame that took d of wall time.
func ObserveFrame(d time.Duration, slow bool) {
	FramesTotal.Inc()
	FrameDuration.Observe(d.Seconds())
	if slow {
		SlowFrames.Inc()
	}
}

// Subscribe counts avatar, speech and chat events published on b.
func Subscribe(b *bus.EventBus) {
	gesture := func(outcome string) bus.Handler {
		return func(e bus.Event) {
			g, _ := e.Data["gesture"].(string)
			Gestures.WithLabelValues(g, outcome).Inc()
		}
	}
	b.Subscribe(bus.EventTypeGestureStarted, gesture("started"))
	b.Subscribe(bus.EventTypeGestureCompleted, gesture("completed"))
	b.Subscribe(bus.EventTypeGestureDropped, gesture("dropped"))

	b.Subscribe(bus.EventTypeEmotionChanged, func(e bus.Event) {
		em, _ := e.Data["emotion"].(string)
		EmotionChanges.WithLabelValues(em).Inc()
	})
	b.Subscribe(bus.EventTypeModelLoaded, func(bus.Event) { ModelEvents.WithLabelValues("loaded").Inc() })
	b.Subscribe(bus.EventTypeModelError, func(bus.Event) { ModelEvents.WithLabelValues("error").Inc() })
	b.Subscribe(bus.EventTypeSpeakingStopped, func(bus.Event) { Utterances.Inc() })
	b.Subscribe(bus.EventTypeChatToken, func(bus.Event) { ChatTokens.Inc() })
	b.Subscribe(bus.EventTypeChatError, func(bus.Event) { ChatErrors.Inc() })
}
