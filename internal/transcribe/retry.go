package transcribe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
	"github.com/r0man1337/sesc-video-bot/internal/observability/metrics"
)

// Retrying wraps a Transcriber with the retry policy: up to maxAttempts
// attempts with exponential backoff (1s, 2s, ...) between them.
// Authentication-class failures are never retried.
type Retrying struct {
	inner       Transcriber
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration)
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewRetrying creates the retrying wrapper around a provider.
func NewRetrying(inner Transcriber, maxAttempts int) *Retrying {
	return &Retrying{
		inner:       inner,
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
		metrics:     metrics.DefaultMetrics,
		log:         logging.WithComponent("transcriber-retry"),
	}
}

// Provider returns the wrapped provider's name.
func (r *Retrying) Provider() string { return r.inner.Provider() }

// Transcribe delegates to the provider, retrying transient failures.
func (r *Retrying) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		start := time.Now()
		segments, err := r.inner.Transcribe(ctx, audioPath)
		if err == nil {
			r.metrics.RecordTranscribeAttempt(r.inner.Provider(), "", time.Since(start).Seconds())
			return segments, nil
		}
		lastErr = err

		errType := "service"
		if IsAuthError(err) {
			errType = "auth"
		}
		r.metrics.RecordTranscribeAttempt(r.inner.Provider(), errType, time.Since(start).Seconds())
		r.log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("maxAttempts", r.maxAttempts).
			Str("file", audioPath).
			Msg("transcription attempt failed")

		if errType == "auth" {
			return nil, err
		}
		if attempt < r.maxAttempts-1 {
			wait := time.Duration(1<<attempt) * time.Second
			r.log.Info().Dur("wait", wait).Msg("retrying transcription")
			r.sleep(ctx, wait)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
