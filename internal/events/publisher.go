// Package events publishes pipeline run events to Kafka. Publishing is
// best-effort: a failed publish never affects the run outcome.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/r0man1337/sesc-video-bot/internal/observability/metrics"
)

// RunEvent describes one finished pipeline run.
type RunEvent struct {
	EventType   string `json:"eventType"` // run.completed | run.failed
	RunID       string `json:"runId"`
	UserID      int64  `json:"userId"`
	Mode        string `json:"mode"`
	FailureKind string `json:"failureKind,omitempty"`
	DurationMs  int64  `json:"durationMs"`
	Segments    int    `json:"segments"`
	Timestamp   int64  `json:"timestamp"`
}

// Config holds Kafka publisher configuration.
type Config struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	Principal string
}

// Publisher publishes run events to a Kafka topic, or logs them when
// Kafka is disabled.
type Publisher struct {
	writer    *kafka.Writer
	topic     string
	principal string
	enabled   bool
	metrics   *metrics.Metrics
}

// New creates a run-event publisher. With a nil config or no brokers it
// runs in log-only mode.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, run events use log-only mode")
		p := &Publisher{enabled: false, metrics: m}
		if cfg != nil {
			p.topic = cfg.Topic
			p.principal = cfg.Principal
		}
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("principal", cfg.Principal).
		Msg("Kafka run-event publisher initialized")

	return &Publisher{
		writer:    writer,
		topic:     cfg.Topic,
		principal: cfg.Principal,
		enabled:   true,
		metrics:   m,
	}
}

// PublishRun publishes one run event keyed by its run ID.
func (p *Publisher) PublishRun(ctx context.Context, event RunEvent) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("Failed to marshal run event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", p.topic).
		RawJSON("payload", payload).
		Msg("Publishing run event")

	if !p.enabled || p.writer == nil {
		p.metrics.RecordEventPublish(p.topic, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("runId", event.RunID).
			Msg("Failed to write run event to Kafka")
		p.metrics.RecordEventPublish(p.topic, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordEventPublish(p.topic, nil, time.Since(start).Seconds())
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
