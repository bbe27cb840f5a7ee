package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
	"github.com/kenhendricks00/ai-companion/internal/bus"
	"github.com/kenhendricks00/ai-companion/internal/chat"
	"github.com/kenhendricks00/ai-companion/internal/config"
	"github.com/kenhendricks00/ai-companion/internal/feed"
	"github.com/kenhendricks00/ai-companion/internal/frameloop"
	"github.com/kenhendricks00/ai-companion/internal/logging"
	"github.com/kenhendricks00/ai-companion/internal/metrics"
	"github.com/kenhendricks00/ai-companion/internal/model"
	"github.com/kenhendricks00/ai-companion/internal/speech"
	"github.com/kenhendricks00/ai-companion/internal/trigger"
)

// settleDelay is how long a reply's emotion is held after speech ends.
const settleDelay = 5 * time.Second

var interactive bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the avatar, chat session and frame feed",
	RunE:  runAvatar,
}

func init() {
	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read chat messages from stdin")
}

func runAvatar(cmd *cobra.Command, args []string) error {
	v := config.New()
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logs, err := logging.New(logging.Config{
		Dir:        cfg.Logging.Dir,
		Level:      cfg.Logging.Level,
		MaxHistory: cfg.Logging.MaxHistory,
		Console:    cfg.Logging.Console,
	})
	if err != nil {
		return fmt.Errorf("failed to start logging: %w", err)
	}
	defer logs.Close()
	logger := logs.Component("main")

	logs.Info("main", "starting companion", map[string]any{
		"config":     v.ConfigFileUsed(),
		"model":      cfg.Avatar.ModelPath,
		"chat_model": cfg.Chat.Model,
		"feed":       cfg.Feed.Enabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := bus.NewEventBus()
	metrics.Subscribe(events)

	av := avatar3d.NewAvatar(cfg.AvatarOptions(), logs.Component("avatar"))
	av.SetHooks(bus.AvatarHooks(events))

	loader := model.NewLoader(nil, logs.Component("model"))
	if cfg.Avatar.ModelPath != "" {
		if err := av.LoadModel(ctx, loader, cfg.Avatar.ModelPath); err != nil {
			logs.Error("main", "initial model load failed", err, map[string]any{"path": cfg.Avatar.ModelPath})
		}
	} else {
		logger.Warn().Msg("no avatar.model_path configured; frames stay empty until a model loads")
	}

	speaker := speech.NewSpeaker(nil, speech.ClockPlayer{}, av, speech.Config{
		Voice:          cfg.Speech.Voice,
		Speed:          cfg.Speech.Speed,
		WordsPerMinute: cfg.Speech.WordsPerMinute,
	}, logs.Component("speech"))

	streamer := chat.NewOpenAIStreamer(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.Chat.Model, cfg.Chat.Timeout, logs.Component("chat"))
	session := chat.NewSession(streamer, trigger.NewKeywordClassifier(), av, speaker, events, chat.SessionConfig{
		SystemPrompt: cfg.Chat.SystemPrompt,
		HistoryLimit: cfg.Chat.HistoryLimit,
		SettleDelay:  settleDelay,
	}, logs.Component("chat"))

	loop := frameloop.New(av, frameloop.Config{
		FPS:       cfg.Avatar.FPS,
		MaxDelta:  cfg.Avatar.MaxDelta,
		SlowFrame: time.Duration(cfg.Avatar.SlowFrameMs * float64(time.Millisecond)),
	}, events, logs.Component("frameloop"))

	if v.ConfigFileUsed() != "" {
		config.Watch(v, logs.Component("config"), func(next *config.Config) {
			av.SetAffection(next.Avatar.Affection)
			av.SetYOffset(next.Avatar.YOffset)
		})
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(loop.Run)

	if cfg.Feed.Enabled {
		server := feed.NewServer(feed.Config{
			Addr:           cfg.Feed.Addr,
			FrameRate:      cfg.Feed.FrameRate,
			WordsPerMinute: cfg.Speech.WordsPerMinute,
		}, av, session, events, logs, logs.Component("feed"))
		p.Go(server.Run)
	}

	if cfg.Avatar.WatchModel && cfg.Avatar.ModelPath != "" && !isURL(cfg.Avatar.ModelPath) {
		watcher, err := model.NewWatcher(cfg.Avatar.ModelPath, func() {
			if err := av.LoadModel(ctx, loader, cfg.Avatar.ModelPath); err != nil {
				logger.Error().Err(err).Msg("model reload failed")
			}
		}, logs.Component("model"))
		if err != nil {
			logger.Warn().Err(err).Msg("model watching disabled")
		} else {
			p.Go(watcher.Run)
		}
	}

	if interactive {
		p.Go(func(ctx context.Context) error {
			return readChat(ctx, session, speaker, logger)
		})
	}

	err = p.Wait()
	av.DetachModel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logs.Info("main", "companion stopped", map[string]any{"frames": loop.Frames()})
	return nil
}

// readChat sends each stdin line to the session until EOF or ctx is done.
// The session blocks until the reply is spoken, so lines are handled in
// order.
func readChat(ctx context.Context, session *chat.Session, speaker *speech.Speaker, logger zerolog.Logger) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(os.Stderr, "Type a message and press enter. Ctrl+C to quit.")
	for {
		select {
		case <-ctx.Done():
			speaker.Stop()
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			reply, err := session.Send(ctx, line)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, speech.ErrStopped) {
					continue
				}
				logger.Warn().Err(err).Msg("chat failed")
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Printf("[%s] %s\n", reply.Emotion, reply.Text)
		}
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
