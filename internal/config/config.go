// Package config provides configuration management for the companion
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
)

var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "COMPANION"

// Config holds all application configuration
type Config struct {
	Avatar    AvatarConfig    `mapstructure:"avatar"`
	Animation AnimationConfig `mapstructure:"animation"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AvatarConfig configures the model and frame loop
type AvatarConfig struct {
	ModelPath   string  `mapstructure:"model_path"`
	WatchModel  bool    `mapstructure:"watch_model"` // Reload the model when the file changes
	YOffset     float64 `mapstructure:"y_offset"`
	Affection   float64 `mapstructure:"affection"` // 0-100
	FPS         float64 `mapstructure:"fps"`
	MaxDelta    float64 `mapstructure:"max_delta"` // Longest frame step in seconds
	SlowFrameMs float64 `mapstructure:"slow_frame_ms"`
}

// AnimationConfig tunes the animation layers
type AnimationConfig struct {
	GestureSmoothing  float64 `mapstructure:"gesture_smoothing"`
	ShortGestureSpeed float64 `mapstructure:"short_gesture_speed"`
	LongGestureSpeed  float64 `mapstructure:"long_gesture_speed"`
	EmotionFadeRate   float64 `mapstructure:"emotion_fade_rate"`
	ExcitementRate    float64 `mapstructure:"excitement_rate"`
	MouthSmoothing    float64 `mapstructure:"mouth_smoothing"`
	MouthRelease      float64 `mapstructure:"mouth_release"`
	HeadNoise         float64 `mapstructure:"head_noise"`
	Seed              int64   `mapstructure:"seed"`
}

// ChatConfig configures the OpenAI-compatible chat backend (Ollama by default)
type ChatConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	HistoryLimit int           `mapstructure:"history_limit"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SpeechConfig configures speech playback and lip sync timing
type SpeechConfig struct {
	WordsPerMinute float64 `mapstructure:"words_per_minute"`
	Voice          string  `mapstructure:"voice"`
	Speed          float64 `mapstructure:"speed"`
}

// FeedConfig configures the frame feed server
type FeedConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Addr      string  `mapstructure:"addr"`
	FrameRate float64 `mapstructure:"frame_rate"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Console    bool   `mapstructure:"console"`
	MaxHistory int    `mapstructure:"max_history"`
}

const defaultSystemPrompt = "You are a warm, playful companion. Express feelings with tags like [happy], [blush] or [pout]."

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Avatar: AvatarConfig{
			YOffset:     avatar3d.DefaultYOffset,
			Affection:   50,
			FPS:         60,
			MaxDelta:    0.1,
			SlowFrameMs: 50,
		},
		Animation: AnimationConfig{
			GestureSmoothing:  avatar3d.DefaultGestureSmoothing,
			ShortGestureSpeed: avatar3d.DefaultShortGestureSpeed,
			LongGestureSpeed:  avatar3d.DefaultLongGestureSpeed,
			EmotionFadeRate:   3,
			ExcitementRate:    avatar3d.DefaultExcitementRate,
			MouthSmoothing:    avatar3d.DefaultMouthSmoothing,
			MouthRelease:      avatar3d.DefaultMouthRelease,
			HeadNoise:         0.015,
			Seed:              1,
		},
		Chat: ChatConfig{
			BaseURL:      "http://localhost:11434/v1",
			Model:        "dolphin-mistral",
			APIKey:       "ollama",
			SystemPrompt: defaultSystemPrompt,
			HistoryLimit: 20,
			Timeout:      60 * time.Second,
		},
		Speech: SpeechConfig{
			WordsPerMinute: 150,
			Voice:          "af_heart",
			Speed:          1.2,
		},
		Feed: FeedConfig{
			Enabled:   true,
			Addr:      "127.0.0.1:8090",
			FrameRate: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			MaxHistory: 1000,
		},
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".companion"), nil
}

// New returns a viper instance with defaults, search paths and environment
// overrides (COMPANION_AVATAR_MODEL_PATH and so on) set up.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := GetConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("avatar.model_path", d.Avatar.ModelPath)
	v.SetDefault("avatar.watch_model", d.Avatar.WatchModel)
	v.SetDefault("avatar.y_offset", d.Avatar.YOffset)
	v.SetDefault("avatar.affection", d.Avatar.Affection)
	v.SetDefault("avatar.fps", d.Avatar.FPS)
	v.SetDefault("avatar.max_delta", d.Avatar.MaxDelta)
	v.SetDefault("avatar.slow_frame_ms", d.Avatar.SlowFrameMs)

	v.SetDefault("animation.gesture_smoothing", d.Animation.GestureSmoothing)
	v.SetDefault("animation.short_gesture_speed", d.Animation.ShortGestureSpeed)
	v.SetDefault("animation.long_gesture_speed", d.Animation.LongGestureSpeed)
	v.SetDefault("animation.emotion_fade_rate", d.Animation.EmotionFadeRate)
	v.SetDefault("animation.excitement_rate", d.Animation.ExcitementRate)
	v.SetDefault("animation.mouth_smoothing", d.Animation.MouthSmoothing)
	v.SetDefault("animation.mouth_release", d.Animation.MouthRelease)
	v.SetDefault("animation.head_noise", d.Animation.HeadNoise)
	v.SetDefault("animation.seed", d.Animation.Seed)

	v.SetDefault("chat.base_url", d.Chat.BaseURL)
	v.SetDefault("chat.model", d.Chat.Model)
	v.SetDefault("chat.api_key", d.Chat.APIKey)
	v.SetDefault("chat.system_prompt", d.Chat.SystemPrompt)
	v.SetDefault("chat.history_limit", d.Chat.HistoryLimit)
	v.SetDefault("chat.timeout", d.Chat.Timeout)

	v.SetDefault("speech.words_per_minute", d.Speech.WordsPerMinute)
	v.SetDefault("speech.voice", d.Speech.Voice)
	v.SetDefault("speech.speed", d.Speech.Speed)

	v.SetDefault("feed.enabled", d.Feed.Enabled)
	v.SetDefault("feed.addr", d.Feed.Addr)
	v.SetDefault("feed.frame_rate", d.Feed.FrameRate)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.dir", d.Logging.Dir)
	v.SetDefault("logging.console", d.Logging.Console)
	v.SetDefault("logging.max_history", d.Logging.MaxHistory)
}

// Load reads configuration from .env, the config file and the environment.
// path overrides the search paths when set. A missing config file is not
// an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	_ = godotenv.Load()

	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	v := viper.New()
	setDefaults(v, cfg)
	return v.WriteConfigAs(path)
}

// Validate reports every out-of-range value at once.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Avatar.Affection >= 0 && c.Avatar.Affection <= 100, "avatar.affection must be within 0..100")
	check(c.Avatar.FPS > 0, "avatar.fps must be positive")
	check(c.Avatar.MaxDelta > 0, "avatar.max_delta must be positive")
	check(c.Animation.ShortGestureSpeed > 0, "animation.short_gesture_speed must be positive")
	check(c.Animation.LongGestureSpeed > 0, "animation.long_gesture_speed must be positive")
	check(c.Animation.GestureSmoothing > 0, "animation.gesture_smoothing must be positive")
	check(c.Animation.MouthSmoothing > 0, "animation.mouth_smoothing must be positive")
	check(c.Animation.HeadNoise >= 0, "animation.head_noise must not be negative")
	check(c.Chat.HistoryLimit >= 0, "chat.history_limit must not be negative")
	check(c.Speech.WordsPerMinute > 0, "speech.words_per_minute must be positive")
	check(c.Speech.Speed > 0, "speech.speed must be positive")
	check(!c.Feed.Enabled || c.Feed.FrameRate > 0, "feed.frame_rate must be positive")
	check(!c.Feed.Enabled || c.Feed.Addr != "", "feed.addr is required")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// AvatarOptions maps the configuration onto animation options.
func (c *Config) AvatarOptions() avatar3d.Options {
	return avatar3d.Options{
		Affection:         c.Avatar.Affection,
		YOffset:           c.Avatar.YOffset,
		Seed:              c.Animation.Seed,
		ShortGestureSpeed: c.Animation.ShortGestureSpeed,
		LongGestureSpeed:  c.Animation.LongGestureSpeed,
		GestureSmoothing:  c.Animation.GestureSmoothing,
		EmotionFadeRate:   c.Animation.EmotionFadeRate,
		ExcitementRate:    c.Animation.ExcitementRate,
		MouthSmoothing:    c.Animation.MouthSmoothing,
		MouthRelease:      c.Animation.MouthRelease,
		HeadNoise:         c.Animation.HeadNoise,
	}
}
