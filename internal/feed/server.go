// Package feed serves the avatar's frames and events to websocket clients
// and accepts control commands from them.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
	"github.com/kenhendricks00/ai-companion/internal/bus"
	"github.com/kenhendricks00/ai-companion/internal/chat"
	"github.com/kenhendricks00/ai-companion/internal/logging"
	"github.com/kenhendricks00/ai-companion/internal/metrics"
	"github.com/kenhendricks00/ai-companion/internal/speech"
)

// Controller is the avatar surface the feed drives.
type Controller interface {
	SetEmotion(e avatar3d.Emotion)
	SetAffection(v float64)
	SetYOffset(y float64)
	SetMouthWeights(m avatar3d.MouthWeights)
	RequestGesture(g avatar3d.GestureKind) bool
	Speak(text string, durationMs float64) string
	StopSpeaking()
	Snapshot() avatar3d.Snapshot
}

// Chatter runs a chat exchange for "say" commands.
type Chatter interface {
	Send(ctx context.Context, text string) (*chat.Reply, error)
}

type Config struct {
	Addr           string
	FrameRate      float64
	WordsPerMinute float64
}

type Server struct {
	cfg     Config
	echo    *echo.Echo
	hub     *Hub
	avatar  Controller
	chatter Chatter
	events  *bus.EventBus
	logs    *logging.Logger
	logger  zerolog.Logger

	ctxMu sync.RWMutex
	ctx   context.Context
}

// NewServer wires routes and, when events is set, forwards every bus event
// to clients. chatter and logs may be nil.
func NewServer(cfg Config, avatar Controller, chatter Chatter, events *bus.EventBus, logs *logging.Logger, logger zerolog.Logger) *Server {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 30
	}
	s := &Server{
		cfg:     cfg,
		echo:    echo.New(),
		avatar:  avatar,
		chatter: chatter,
		events:  events,
		logs:    logs,
		logger:  logger.With().Str("component", "feed").Logger(),
		ctx:     context.Background(),
	}
	s.hub = NewHub(s.handleMessage, s.logger)

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(requestMetrics)
	s.routes()

	if events != nil {
		events.SubscribeAll(s.forwardEvent)
	}
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"service": "companion-feed",
			"loaded":  s.avatar.Snapshot().Loaded,
			"clients": s.hub.Len(),
		})
	})
	s.echo.GET("/snapshot", func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.avatar.Snapshot())
	})
	s.echo.GET("/logs", s.handleLogs)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/ws", s.hub.serveWS)
}

// Handler exposes the routes, mostly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.ctxMu.Lock()
	s.ctx = ctx
	s.ctxMu.Unlock()

	go s.hub.Run(ctx)
	go s.streamFrames(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("feed server listening")
		errCh <- s.echo.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("feed server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("feed shutdown: %w", err)
	}
	s.logger.Info().Msg("feed server stopped")
	return nil
}

func (s *Server) context() context.Context {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	return s.ctx
}

// streamFrames broadcasts each new frame at the feed rate.
func (s *Server) streamFrames(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.cfg.FrameRate))
	defer ticker.Stop()

	var lastFrame uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.hub.Len() == 0 {
			continue
		}
		snap := s.avatar.Snapshot()
		if !snap.Loaded || snap.Frame == lastFrame {
			continue
		}
		lastFrame = snap.Frame

		msg := newOutbound(MessageTypeFrame)
		msg.Frame = &snap
		payload, err := encode(msg)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to encode frame")
			continue
		}
		s.hub.Broadcast(payload)
	}
}

func (s *Server) forwardEvent(e bus.Event) {
	msg := newOutbound(MessageTypeEvent)
	msg.Event = &e
	payload, err := encode(msg)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("failed to encode event")
		return
	}
	s.hub.Broadcast(payload)
}

func (s *Server) handleLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if s.logs == nil {
		return c.JSON(http.StatusOK, []logging.LogEntry{})
	}
	return c.JSON(http.StatusOK, s.logs.GetHistory(limit))
}

// handleMessage applies one client command and acknowledges it.
func (s *Server) handleMessage(client *Client, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.reject(client, "", fmt.Errorf("invalid message: %w", err))
		return
	}

	ack := newOutbound(MessageTypeAck)
	ack.Command = cmd.Type

	switch cmd.Type {
	case MessageTypeEmotion:
		e, err := avatar3d.ParseEmotion(cmd.Emotion)
		if err != nil {
			s.reject(client, cmd.Type, err)
			return
		}
		s.avatar.SetEmotion(e)

	case MessageTypeGesture:
		g, err := avatar3d.ParseGesture(cmd.Gesture)
		if err != nil {
			s.reject(client, cmd.Type, err)
			return
		}
		accepted := s.avatar.RequestGesture(g)
		ack.Accepted = &accepted

	case MessageTypeMouth:
		s.avatar.SetMouthWeights(avatar3d.MouthWeightsFromMap(cmd.Weights))

	case MessageTypeAffection:
		s.avatar.SetAffection(cmd.Value)

	case MessageTypeYOffset:
		s.avatar.SetYOffset(cmd.Value)

	case MessageTypeSpeak:
		ms := cmd.DurationMs
		if ms <= 0 {
			ms = float64(speech.EstimateDuration(cmd.Text, s.cfg.WordsPerMinute).Milliseconds())
		}
		ack.Utterance = s.avatar.Speak(cmd.Text, ms)

	case MessageTypeStop:
		s.avatar.StopSpeaking()

	case MessageTypeSay:
		if s.chatter == nil {
			s.reject(client, cmd.Type, errors.New("chat is not configured"))
			return
		}
		go s.say(client, cmd.Text)

	default:
		s.reject(client, cmd.Type, fmt.Errorf("unknown message type %q", cmd.Type))
		return
	}

	client.Send(ack)
}

func (s *Server) say(client *Client, text string) {
	if _, err := s.chatter.Send(s.context(), text); err != nil {
		s.reject(client, MessageTypeSay, err)
	}
}

func (s *Server) reject(client *Client, cmd MessageType, err error) {
	msg := newOutbound(MessageTypeError)
	msg.Command = cmd
	msg.Error = err.Error()
	client.Send(msg)
	s.logger.Debug().Err(err).Str("command", string(cmd)).Msg("command rejected")
}

// requestMetrics records request counts and latency per route.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request().Method
		metrics.RequestCount.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}
