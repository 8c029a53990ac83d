package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_POLL_TIMEOUT_SEC",
		"STT_PROVIDER", "OPENAI_API_KEY", "OPENAI_MODEL",
		"STT_LANGUAGE_CODE", "STT_MAX_ATTEMPTS",
		"MAX_VIDEO_SIZE_MB", "CHUNK_DURATION",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_RUNS",
		"SERVICE_PRINCIPAL", "LOG_LEVEL", "METRICS_ADDR",
	} {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Transcription.Provider != "openai" {
		t.Errorf("expected default provider 'openai', got %s", cfg.Transcription.Provider)
	}
	if cfg.Transcription.OpenAIModel != "whisper-1" {
		t.Errorf("expected default model 'whisper-1', got %s", cfg.Transcription.OpenAIModel)
	}
	if cfg.Transcription.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Transcription.MaxAttempts)
	}
	if cfg.Pipeline.MaxVideoSizeMB != 100 {
		t.Errorf("expected default max video size 100, got %d", cfg.Pipeline.MaxVideoSizeMB)
	}
	if cfg.Pipeline.ChunkDuration != 5*time.Minute {
		t.Errorf("expected default chunk duration 5m, got %v", cfg.Pipeline.ChunkDuration)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled by default")
	}
	if cfg.Kafka.Topic != "video-bot.runs" {
		t.Errorf("expected default topic 'video-bot.runs', got %s", cfg.Kafka.Topic)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsAddr != ":9091" {
		t.Errorf("expected default metrics addr ':9091', got %s", cfg.Observability.MetricsAddr)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("STT_LANGUAGE_CODE", "en-US")
	t.Setenv("MAX_VIDEO_SIZE_MB", "50")
	t.Setenv("CHUNK_DURATION", "2m")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("expected token '123:abc', got %s", cfg.Telegram.Token)
	}
	if cfg.Transcription.Provider != "google" {
		t.Errorf("expected provider 'google', got %s", cfg.Transcription.Provider)
	}
	if cfg.Transcription.LanguageCode != "en-US" {
		t.Errorf("expected language 'en-US', got %s", cfg.Transcription.LanguageCode)
	}
	if cfg.Pipeline.MaxVideoSizeMB != 50 {
		t.Errorf("expected max video size 50, got %d", cfg.Pipeline.MaxVideoSizeMB)
	}
	if got := cfg.MaxVideoSizeBytes(); got != 50*1024*1024 {
		t.Errorf("expected max bytes %d, got %d", 50*1024*1024, got)
	}
	if cfg.Pipeline.ChunkDuration != 2*time.Minute {
		t.Errorf("expected chunk duration 2m, got %v", cfg.Pipeline.ChunkDuration)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_VIDEO_SIZE_MB", "not-a-number")
	t.Setenv("CHUNK_DURATION", "invalid")
	t.Setenv("KAFKA_ENABLED", "yes-please")
	t.Setenv("STT_MAX_ATTEMPTS", "lots")

	cfg := Load()

	if cfg.Pipeline.MaxVideoSizeMB != 100 {
		t.Errorf("expected default max video size on invalid input, got %d", cfg.Pipeline.MaxVideoSizeMB)
	}
	if cfg.Pipeline.ChunkDuration != 5*time.Minute {
		t.Errorf("expected default chunk duration on invalid input, got %v", cfg.Pipeline.ChunkDuration)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled on invalid input")
	}
	if cfg.Transcription.MaxAttempts != 3 {
		t.Errorf("expected default max attempts on invalid input, got %d", cfg.Transcription.MaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing bot token",
			mutate:  func(c *Config) { c.Telegram.Token = "" },
			wantErr: ErrMissingBotToken,
		},
		{
			name:    "openai without key",
			mutate:  func(c *Config) { c.Transcription.OpenAIKey = "" },
			wantErr: ErrMissingOpenAIKey,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Transcription.Provider = "azure" },
			wantErr: ErrUnknownSTTProvider,
		},
		{
			name:    "google provider needs no openai key",
			mutate:  func(c *Config) { c.Transcription.Provider = "google"; c.Transcription.OpenAIKey = "" },
			wantErr: nil,
		},
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			cfg.Telegram.Token = "123:abc"
			cfg.Transcription.OpenAIKey = "sk-test"
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ClampsOutOfRange(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	cfg.Telegram.Token = "123:abc"
	cfg.Transcription.OpenAIKey = "sk-test"
	cfg.Pipeline.MaxVideoSizeMB = 0
	cfg.Pipeline.ChunkDuration = -time.Second
	cfg.Transcription.MaxAttempts = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if cfg.Pipeline.MaxVideoSizeMB != 100 {
		t.Errorf("expected clamped max video size 100, got %d", cfg.Pipeline.MaxVideoSizeMB)
	}
	if cfg.Pipeline.ChunkDuration != 5*time.Minute {
		t.Errorf("expected clamped chunk duration 5m, got %v", cfg.Pipeline.ChunkDuration)
	}
	if cfg.Transcription.MaxAttempts != 3 {
		t.Errorf("expected clamped max attempts 3, got %d", cfg.Transcription.MaxAttempts)
	}
}
