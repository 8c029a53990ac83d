// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sesc_video_bot"

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Run metrics
	RunsTotal     prometheus.Counter
	RunsActive    prometheus.Gauge
	RunsCompleted prometheus.Counter
	RunsFailed    *prometheus.CounterVec
	RunDuration   prometheus.Histogram

	// Submission metrics
	VideosReceived    prometheus.Counter
	VideosRejected    *prometheus.CounterVec
	PendingOverwrites prometheus.Counter

	// Splitting metrics
	ChunksCreated prometheus.Counter
	ChunksSkipped prometheus.Counter

	// Transcription metrics
	TranscribeAttempts *prometheus.CounterVec
	TranscribeErrors   *prometheus.CounterVec
	TranscribeLatency  *prometheus.HistogramVec

	// Delivery metrics
	DocumentsSent *prometheus.CounterVec

	// Kafka publish metrics
	EventPublishTotal   *prometheus.CounterVec
	EventPublishErrors  *prometheus.CounterVec
	EventPublishLatency prometheus.Histogram
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs started",
		}),
		RunsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of currently active pipeline runs",
		}),
		RunsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of successfully completed runs",
		}),
		RunsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of failed runs",
		}, []string{"kind"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		VideosReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_received_total",
			Help:      "Total number of video messages received",
		}),
		VideosRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_rejected_total",
			Help:      "Total number of video messages rejected before processing",
		}, []string{"reason"}),
		PendingOverwrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_overwrites_total",
			Help:      "Times a new video overwrote a pending submission",
		}),

		ChunksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_created_total",
			Help:      "Total number of audio chunks created by the splitter",
		}),
		ChunksSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_skipped_total",
			Help:      "Total number of audio chunks skipped after transcoder failures",
		}),

		TranscribeAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcribe_attempts_total",
			Help:      "Total number of transcription attempts",
		}, []string{"provider"}),
		TranscribeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcribe_errors_total",
			Help:      "Total number of transcription errors",
		}, []string{"provider", "error_type"}),
		TranscribeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcribe_latency_seconds",
			Help:      "Transcription call latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),

		DocumentsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_sent_total",
			Help:      "Total number of documents delivered to users",
		}, []string{"type"}),

		EventPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Total number of run events published",
		}, []string{"topic"}),
		EventPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Total number of run event publish errors",
		}, []string{"topic"}),
		EventPublishLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_publish_latency_seconds",
			Help:      "Run event publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// RecordRunStart records a new pipeline run starting.
func (m *Metrics) RecordRunStart() {
	m.RunsTotal.Inc()
	m.RunsActive.Inc()
}

// RecordRunEnd records a pipeline run ending. failureKind is empty on success.
func (m *Metrics) RecordRunEnd(failureKind string, durationSeconds float64) {
	m.RunsActive.Dec()
	m.RunDuration.Observe(durationSeconds)
	if failureKind == "" {
		m.RunsCompleted.Inc()
	} else {
		m.RunsFailed.WithLabelValues(failureKind).Inc()
	}
}

// RecordVideoReceived records an incoming video message.
func (m *Metrics) RecordVideoReceived() {
	m.VideosReceived.Inc()
}

// RecordVideoRejected records a video rejected before processing.
func (m *Metrics) RecordVideoRejected(reason string) {
	m.VideosRejected.WithLabelValues(reason).Inc()
}

// RecordPendingOverwrite records a pending submission being replaced.
func (m *Metrics) RecordPendingOverwrite() {
	m.PendingOverwrites.Inc()
}

// RecordChunkCreated records a chunk emitted by the splitter.
func (m *Metrics) RecordChunkCreated() {
	m.ChunksCreated.Inc()
}

// RecordChunkSkipped records a chunk skipped due to a transcoder failure.
func (m *Metrics) RecordChunkSkipped() {
	m.ChunksSkipped.Inc()
}

// RecordTranscribeAttempt records one transcription attempt with its outcome.
func (m *Metrics) RecordTranscribeAttempt(provider, errorType string, latencySeconds float64) {
	m.TranscribeAttempts.WithLabelValues(provider).Inc()
	m.TranscribeLatency.WithLabelValues(provider).Observe(latencySeconds)
	if errorType != "" {
		m.TranscribeErrors.WithLabelValues(provider, errorType).Inc()
	}
}

// RecordDocumentSent records a delivered document by type (audio, transcript).
func (m *Metrics) RecordDocumentSent(docType string) {
	m.DocumentsSent.WithLabelValues(docType).Inc()
}

// RecordEventPublish records a run event publish attempt.
func (m *Metrics) RecordEventPublish(topic string, err error, latencySeconds float64) {
	m.EventPublishTotal.WithLabelValues(topic).Inc()
	m.EventPublishLatency.Observe(latencySeconds)
	if err != nil {
		m.EventPublishErrors.WithLabelValues(topic).Inc()
	}
}
