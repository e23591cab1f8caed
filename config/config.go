// Package config loads service settings from defaults, an optional YAML file,
// a .env file and SONIDO_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-voice/goals"
	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/stream"
	"github.com/RyanBlaney/sonido-voice/transcode"
)

// EnvPrefix prefixes every environment override; dots in keys become
// underscores, so server.address is SONIDO_SERVER_ADDRESS
const EnvPrefix = "SONIDO"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Stream   stream.Config  `mapstructure:"stream"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Decoder  DecoderConfig  `mapstructure:"decoder"`
	Storage  StorageConfig  `mapstructure:"storage"`
	ASR      ASRConfig      `mapstructure:"asr"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Presets  PresetsConfig  `mapstructure:"presets"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// AnalysisConfig sets the batch defaults used when a request leaves them out
type AnalysisConfig struct {
	DefaultGoal string `mapstructure:"default_goal"`
	Transcribe  bool   `mapstructure:"transcribe"`
	VoiceLab    bool   `mapstructure:"voice_lab"`
}

type DecoderConfig struct {
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	FFprobePath string        `mapstructure:"ffprobe_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxDuration time.Duration `mapstructure:"max_duration"` // 0 = no limit
}

type StorageConfig struct {
	Path     string        `mapstructure:"path"`
	InMemory bool          `mapstructure:"in_memory"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ASRConfig points at the transcription service; an empty URL disables it
type ASRConfig struct {
	URL      string        `mapstructure:"url"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PresetsConfig names an optional YAML file overlaid on the built-in goals
type PresetsConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	sc := stream.DefaultConfig()
	dc := transcode.DefaultDecoderConfig()

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(32<<20))

	v.SetDefault("stream.sample_rate", sc.SampleRate)
	v.SetDefault("stream.buffer_seconds", sc.BufferSeconds)
	v.SetDefault("stream.window_seconds", sc.WindowSeconds)
	v.SetDefault("stream.min_seconds", sc.MinSeconds)
	v.SetDefault("stream.max_chunks_per_second", sc.MaxChunksPerSecond)
	v.SetDefault("stream.rate_window", sc.RateWindow)
	v.SetDefault("stream.max_connections_per_ip", sc.MaxConnectionsPerIP)
	v.SetDefault("stream.hysteresis", sc.Hysteresis)

	v.SetDefault("analysis.default_goal", goals.DefaultPreset)
	v.SetDefault("analysis.transcribe", false)
	v.SetDefault("analysis.voice_lab", true)

	v.SetDefault("decoder.ffmpeg_path", dc.FFmpegPath)
	v.SetDefault("decoder.ffprobe_path", dc.FFprobePath)
	v.SetDefault("decoder.timeout", dc.Timeout)
	v.SetDefault("decoder.max_duration", dc.MaxDuration)

	v.SetDefault("storage.path", "./data/analyses")
	v.SetDefault("storage.in_memory", false)
	v.SetDefault("storage.ttl", 24*time.Hour)

	v.SetDefault("asr.url", "")
	v.SetDefault("asr.language", "")
	v.SetDefault("asr.timeout", 60*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", string(logging.FormatText))

	v.SetDefault("presets.path", "")
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Address != "", "server.address must be set")
	check(c.Server.ReadTimeout > 0, "server.read_timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server.write_timeout must be positive")
	check(c.Server.ShutdownTimeout > 0, "server.shutdown_timeout must be positive")
	check(c.Server.MaxUploadBytes > 0, "server.max_upload_bytes must be positive")

	s := c.Stream
	check(s.SampleRate > 0, "stream.sample_rate must be positive")
	check(s.BufferSeconds > 0, "stream.buffer_seconds must be positive")
	check(s.WindowSeconds > 0 && s.WindowSeconds <= s.BufferSeconds,
		"stream.window_seconds must be in (0, buffer_seconds], got %v", s.WindowSeconds)
	check(s.MinSeconds > 0 && s.MinSeconds <= s.BufferSeconds,
		"stream.min_seconds must be in (0, buffer_seconds], got %v", s.MinSeconds)
	check(s.MaxChunksPerSecond > 0, "stream.max_chunks_per_second must be positive")
	check(s.RateWindow > 0, "stream.rate_window must be positive")
	check(s.MaxConnectionsPerIP >= 0, "stream.max_connections_per_ip must not be negative")
	check(s.Hysteresis >= 0, "stream.hysteresis must not be negative")

	check(c.Decoder.Timeout > 0, "decoder.timeout must be positive")
	check(c.Storage.InMemory || c.Storage.Path != "", "storage.path must be set unless storage.in_memory")
	check(c.Storage.TTL >= 0, "storage.ttl must not be negative")
	check(c.ASR.Timeout > 0, "asr.timeout must be positive")

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	f := logging.Format(c.Logging.Format)
	check(f == logging.FormatText || f == logging.FormatJSON,
		"logging.format must be text or json, got %q", c.Logging.Format)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// LoaderConfig converts the decoder section for transcode.NewLoader
func (c *Config) LoaderConfig() *transcode.DecoderConfig {
	dc := transcode.DefaultDecoderConfig()
	dc.FFmpegPath = c.Decoder.FFmpegPath
	dc.FFprobePath = c.Decoder.FFprobePath
	dc.Timeout = c.Decoder.Timeout
	dc.MaxDuration = c.Decoder.MaxDuration
	return dc
}

// NewLogger builds the logger described by the logging section
func (c *Config) NewLogger() logging.Logger {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.NewLogger(logging.Format(c.Logging.Format), level, os.Stdout, os.Stderr)
}
