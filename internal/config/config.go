package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"readaloud/internal/narration"
	"readaloud/internal/narration/tts"
)

type Config struct {
	TTS       TTSConfig       `mapstructure:"tts"`
	Narration NarrationConfig `mapstructure:"narration"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type TTSConfig struct {
	Type        string  `mapstructure:"type"`
	Voice       string  `mapstructure:"voice"`
	Speed       float64 `mapstructure:"speed"`
	Pitch       float64 `mapstructure:"pitch"`
	Volume      float64 `mapstructure:"volume"`
	GoogleVoice string  `mapstructure:"google_voice"`
}

type NarrationConfig struct {
	Locale        string  `mapstructure:"locale"`
	ChildFriendly bool    `mapstructure:"child_friendly"`
	AddPauses     bool    `mapstructure:"add_pauses"`
	ChildRate     float64 `mapstructure:"child_rate"`
	ChildPitch    float64 `mapstructure:"child_pitch"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("tts.type", "auto") // Auto-select best engine
	v.SetDefault("tts.voice", "default")
	v.SetDefault("tts.speed", 1.0)
	v.SetDefault("tts.pitch", 1.0)
	v.SetDefault("tts.volume", 1.0)
	v.SetDefault("tts.google_voice", "en-US-Chirp3-HD-Charon")

	v.SetDefault("narration.locale", "en")
	v.SetDefault("narration.child_friendly", true)
	v.SetDefault("narration.add_pauses", true)
	v.SetDefault("narration.child_rate", 0.9)
	v.SetDefault("narration.child_pitch", 1.05)

	v.SetDefault("logging.level", "info")
}

// New returns a viper instance with defaults, env binding and the config
// search path set. An empty configFile searches $HOME/.readaloud and ".".
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("readaloud")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.readaloud")
		v.AddConfigPath(".")
	}

	// READALOUD_TTS_TYPE, READALOUD_NARRATION_LOCALE, ...
	v.SetEnvPrefix("READALOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file if there is one and unmarshals everything.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		logrus.Debug("no config file found, using defaults and environment variables")
	} else {
		logrus.WithField("path", v.ConfigFileUsed()).Debug("loaded config file")
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Watch calls apply with the fresh config every time the file changes.
func Watch(v *viper.Viper, apply func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			logrus.WithError(err).Warn("ignoring invalid config change")
			return
		}
		logrus.WithField("file", e.Name).Info("config reloaded")
		apply(cfg)
	})
	v.WatchConfig()
}

// Engine returns the TTS engine settings.
func (c *Config) Engine() tts.Config {
	return tts.Config{
		Type:        c.TTS.Type,
		Speed:       c.TTS.Speed,
		Pitch:       c.TTS.Pitch,
		Volume:      c.TTS.Volume,
		Voice:       c.TTS.Voice,
		GoogleVoice: c.TTS.GoogleVoice,
	}
}

// Settings returns the narration defaults.
func (c *Config) Settings() narration.Settings {
	s := narration.DefaultSettings()
	s.Locale = c.Narration.Locale
	s.Voice = c.TTS.Voice
	s.ChildFriendly = c.Narration.ChildFriendly
	s.AddPauses = c.Narration.AddPauses
	s.Rate = c.TTS.Speed
	s.Pitch = c.TTS.Pitch
	s.Volume = c.TTS.Volume
	s.ChildRate = c.Narration.ChildRate
	s.ChildPitch = c.Narration.ChildPitch
	return s
}

// SetupLogging configures the global logrus logger.
func SetupLogging(cfg LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
