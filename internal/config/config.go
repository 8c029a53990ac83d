// Package config loads process-wide configuration from the environment.
// Configuration is read once at startup and is read-only afterwards.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// TelegramConfig holds the chat platform credentials and polling settings.
type TelegramConfig struct {
	Token          string
	PollTimeoutSec int
}

// TranscriptionConfig selects and configures the speech-to-text provider.
type TranscriptionConfig struct {
	Provider     string // openai, google
	OpenAIKey    string
	OpenAIModel  string
	LanguageCode string // used by the google provider
	MaxAttempts  int
}

// PipelineConfig bounds a single video-processing run.
type PipelineConfig struct {
	MaxVideoSizeMB int
	ChunkDuration  time.Duration
}

// KafkaConfig configures the optional run-event publisher.
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	Principal string
}

// ObservabilityConfig configures logging and the metrics side server.
type ObservabilityConfig struct {
	LogLevel    string
	MetricsAddr string
}

// Config is the aggregate process configuration.
type Config struct {
	Telegram      TelegramConfig
	Transcription TranscriptionConfig
	Pipeline      PipelineConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// MaxVideoSizeBytes returns the configured size cap in bytes.
func (c *Config) MaxVideoSizeBytes() int64 {
	return int64(c.Pipeline.MaxVideoSizeMB) * 1024 * 1024
}

// Load reads configuration from environment variables, applying defaults
// for anything unset or unparsable.
func Load() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:          os.Getenv("TELEGRAM_BOT_TOKEN"),
			PollTimeoutSec: envAsInt("TELEGRAM_POLL_TIMEOUT_SEC", 30),
		},
		Transcription: TranscriptionConfig{
			Provider:     envOrDefault("STT_PROVIDER", "openai"),
			OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:  envOrDefault("OPENAI_MODEL", "whisper-1"),
			LanguageCode: envOrDefault("STT_LANGUAGE_CODE", "ru-RU"),
			MaxAttempts:  envAsInt("STT_MAX_ATTEMPTS", 3),
		},
		Pipeline: PipelineConfig{
			MaxVideoSizeMB: envAsInt("MAX_VIDEO_SIZE_MB", 100),
			ChunkDuration:  envAsDuration("CHUNK_DURATION", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:   envAsBool("KAFKA_ENABLED", false),
			Brokers:   envAsList("KAFKA_BROKERS"),
			Topic:     envOrDefault("KAFKA_TOPIC_RUNS", "video-bot.runs"),
			Principal: envOrDefault("SERVICE_PRINCIPAL", "sesc-video-bot"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9091"),
		},
	}
}

// Validation errors surfaced before the bot starts.
var (
	ErrMissingBotToken    = errors.New("TELEGRAM_BOT_TOKEN is not set")
	ErrMissingOpenAIKey   = errors.New("OPENAI_API_KEY is not set")
	ErrUnknownSTTProvider = errors.New("unknown STT provider")
)

// Validate checks that required credentials are present and clamps
// out-of-range numeric settings back to their defaults. The bot token is
// always required; the transcription credential is required only for the
// provider that needs it.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingBotToken
	}
	switch c.Transcription.Provider {
	case "openai":
		if c.Transcription.OpenAIKey == "" {
			return ErrMissingOpenAIKey
		}
	case "google":
		// Credentials come from GOOGLE_APPLICATION_CREDENTIALS; the
		// client library reports their absence on construction.
	default:
		return ErrUnknownSTTProvider
	}
	if c.Pipeline.MaxVideoSizeMB < 1 {
		c.Pipeline.MaxVideoSizeMB = 100
	}
	if c.Pipeline.ChunkDuration <= 0 {
		c.Pipeline.ChunkDuration = 5 * time.Minute
	}
	if c.Transcription.MaxAttempts < 1 {
		c.Transcription.MaxAttempts = 3
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envAsInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envAsBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envAsDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envAsList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
