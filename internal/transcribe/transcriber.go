// Package transcribe submits audio to a remote speech-to-text service
// and normalizes responses into timed text segments.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/r0man1337/sesc-video-bot/internal/config"
)

// Segment is a timestamped phrase produced by the transcription service.
// Start and End are seconds relative to the submitted audio file.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Transcriber submits one audio file and returns its timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
	Provider() string
}

// IsAuthError reports whether an error is an authentication-class
// failure. Such failures are never retried.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "api key") ||
		strings.Contains(msg, "api_key")
}

// New constructs the configured provider wrapped with the retry policy.
func New(ctx context.Context, cfg config.TranscriptionConfig) (Transcriber, error) {
	var inner Transcriber
	switch cfg.Provider {
	case "openai":
		inner = NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
	case "google":
		g, err := NewGoogle(ctx, cfg.LanguageCode)
		if err != nil {
			return nil, fmt.Errorf("google speech client: %w", err)
		}
		inner = g
	default:
		return nil, config.ErrUnknownSTTProvider
	}
	return NewRetrying(inner, cfg.MaxAttempts), nil
}
