package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Watch re-reads the config file whenever it changes and passes each valid
// result to fn. Invalid edits are logged and skipped.
func Watch(v *viper.Viper, logger zerolog.Logger, fn func(*Config)) {
	logger = logger.With().Str("component", "config").Logger()
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			logger.Warn().Err(err).Str("file", e.Name).Msg("ignoring config change")
			return
		}
		logger.Info().Str("file", e.Name).Msg("config reloaded")
		fn(cfg)
	})
	v.WatchConfig()
}
