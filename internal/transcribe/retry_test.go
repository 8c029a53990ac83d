package transcribe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
	"github.com/r0man1337/sesc-video-bot/internal/observability/metrics"
)

// fakeTranscriber returns scripted results per attempt.
type fakeTranscriber struct {
	calls   int
	results []error
	segs    []Segment
}

func (f *fakeTranscriber) Provider() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	i := f.calls
	f.calls++
	if i < len(f.results) && f.results[i] != nil {
		return nil, f.results[i]
	}
	return f.segs, nil
}

func newTestRetrying(inner Transcriber, maxAttempts int, sleeps *[]time.Duration) *Retrying {
	return &Retrying{
		inner:       inner,
		maxAttempts: maxAttempts,
		sleep: func(ctx context.Context, d time.Duration) {
			*sleeps = append(*sleeps, d)
		},
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("transcriber-retry"),
	}
}

func TestRetrying_SucceedsOnThirdAttempt(t *testing.T) {
	want := []Segment{{Start: 0, End: 2.5, Text: "привет"}}
	inner := &fakeTranscriber{
		results: []error{errors.New("rate limit"), errors.New("timeout"), nil},
		segs:    want,
	}
	var sleeps []time.Duration
	r := newTestRetrying(inner, 3, &sleeps)

	got, err := r.Transcribe(context.Background(), "a.mp3")
	if err != nil {
		t.Fatalf("Transcribe() = %v, want nil", err)
	}
	if len(got) != 1 || got[0].Text != "привет" {
		t.Errorf("segments = %v, want %v", got, want)
	}
	if inner.calls != 3 {
		t.Errorf("attempts = %d, want 3", inner.calls)
	}
	// Exponential backoff: 2^0 and 2^1 seconds.
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("sleeps = %v, want [1s 2s]", sleeps)
	}
}

func TestRetrying_ExhaustsAttempts(t *testing.T) {
	serviceErr := errors.New("server overloaded")
	inner := &fakeTranscriber{
		results: []error{serviceErr, serviceErr, serviceErr},
	}
	var sleeps []time.Duration
	r := newTestRetrying(inner, 3, &sleeps)

	_, err := r.Transcribe(context.Background(), "a.mp3")
	if !errors.Is(err, serviceErr) {
		t.Fatalf("Transcribe() = %v, want last service error", err)
	}
	if inner.calls != 3 {
		t.Errorf("attempts = %d, want 3", inner.calls)
	}
	// No wait after the final attempt.
	if len(sleeps) != 2 {
		t.Errorf("sleeps = %v, want exactly 2 waits", sleeps)
	}
}

func TestRetrying_AuthErrorShortCircuits(t *testing.T) {
	authErr := errors.New("openai authentication error (http 401): invalid api key")
	inner := &fakeTranscriber{
		results: []error{authErr, nil},
	}
	var sleeps []time.Duration
	r := newTestRetrying(inner, 3, &sleeps)

	_, err := r.Transcribe(context.Background(), "a.mp3")
	if !errors.Is(err, authErr) {
		t.Fatalf("Transcribe() = %v, want auth error", err)
	}
	if inner.calls != 1 {
		t.Errorf("attempts = %d, want exactly 1 for auth failure", inner.calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", sleeps)
	}
}

func TestRetrying_CancelledContextStopsRetries(t *testing.T) {
	serviceErr := errors.New("timeout")
	inner := &fakeTranscriber{
		results: []error{serviceErr, serviceErr, serviceErr},
	}
	ctx, cancel := context.WithCancel(context.Background())

	var sleeps []time.Duration
	r := &Retrying{
		inner:       inner,
		maxAttempts: 3,
		sleep: func(ctx context.Context, d time.Duration) {
			sleeps = append(sleeps, d)
			cancel()
		},
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("transcriber-retry"),
	}

	_, err := r.Transcribe(ctx, "a.mp3")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Transcribe() = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("attempts = %d, want 1 (no attempts after cancellation)", inner.calls)
	}
	if len(sleeps) != 1 {
		t.Errorf("sleeps = %v, want exactly 1", sleeps)
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"authentication", errors.New("Authentication failed"), true},
		{"api key", errors.New("invalid API key provided"), true},
		{"api_key underscore", errors.New("bad api_key"), true},
		{"plain service error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
