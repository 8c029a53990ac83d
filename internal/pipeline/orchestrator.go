// Package pipeline drives the end-to-end video processing flow:
// download, convert, optional split and transcription, delivery, and
// unconditional workspace cleanup.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/r0man1337/sesc-video-bot/internal/config"
	"github.com/r0man1337/sesc-video-bot/internal/events"
	"github.com/r0man1337/sesc-video-bot/internal/media"
	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
	"github.com/r0man1337/sesc-video-bot/internal/observability/metrics"
	"github.com/r0man1337/sesc-video-bot/internal/transcribe"
	"github.com/r0man1337/sesc-video-bot/internal/transcript"
)

// Mode is the user-selected combination of deliverables.
type Mode string

const (
	ModeAudioOnly          Mode = "audio_only"
	ModeTranscriptOnly     Mode = "transcript_only"
	ModeAudioAndTranscript Mode = "audio_and_transcript"
)

// ParseMode maps callback data to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeAudioOnly, ModeTranscriptOnly, ModeAudioAndTranscript:
		return Mode(s), true
	}
	return "", false
}

// Submission identifies one user-supplied video resource.
type Submission struct {
	FileID string
	Size   int64
	UserID int64
	ChatID int64
}

// Status is the handle of the status message updated during a run.
type Status struct {
	ChatID    int64
	MessageID int
}

// Messenger is the chat platform surface the pipeline depends on.
type Messenger interface {
	SendDocument(chatID int64, path, filename, caption string) error
	EditMessageText(chatID int64, messageID int, text string) error
	DeleteMessage(chatID int64, messageID int) error
	Download(ctx context.Context, fileID, destPath string) error
}

// Converter produces the primary audio artifact and probes durations.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Splitter partitions audio into fixed-duration chunks.
type Splitter interface {
	Split(ctx context.Context, audioPath string, chunkDuration time.Duration) ([]media.Segment, error)
}

// Orchestrator executes pipeline runs. One run is strictly sequential;
// runs for different users proceed independently.
type Orchestrator struct {
	messenger   Messenger
	converter   Converter
	splitter    Splitter
	transcriber transcribe.Transcriber
	publisher   *events.Publisher
	metrics     *metrics.Metrics

	chunkDuration    time.Duration
	maxVideoBytes    int64
	progressInterval time.Duration
	mkWorkspace      func() (string, error)
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(
	m Messenger,
	conv Converter,
	split Splitter,
	tr transcribe.Transcriber,
	pub *events.Publisher,
	cfg config.PipelineConfig,
) *Orchestrator {
	return &Orchestrator{
		messenger:        m,
		converter:        conv,
		splitter:         split,
		transcriber:      tr,
		publisher:        pub,
		metrics:          metrics.DefaultMetrics,
		chunkDuration:    cfg.ChunkDuration,
		maxVideoBytes:    int64(cfg.MaxVideoSizeMB) * 1024 * 1024,
		progressInterval: time.Second,
		mkWorkspace: func() (string, error) {
			return os.MkdirTemp("", "video-bot-*")
		},
	}
}

type runStats struct {
	segments int
}

// Process runs the full pipeline for one submission. On failure the
// status message is edited to a categorized user-facing message; the
// workspace is always removed.
func (o *Orchestrator) Process(ctx context.Context, sub Submission, mode Mode, status Status) error {
	runID := uuid.NewString()
	log := logging.WithRun(runID, sub.UserID)

	start := time.Now()
	o.metrics.RecordRunStart()
	log.Info().Str("mode", string(mode)).Int64("size", sub.Size).Msg("pipeline run started")

	stats, err := o.run(ctx, sub, mode, status, log)

	kind := ""
	if err != nil {
		re := AsRunError(err)
		kind = re.Kind.String()
		log.Error().Err(err).Str("kind", kind).Msg("pipeline run failed")
		if editErr := o.messenger.EditMessageText(status.ChatID, status.MessageID, re.UserMessage()); editErr != nil {
			log.Warn().Err(editErr).Msg("failed to report failure to user")
		}
	} else {
		log.Info().Int("segments", stats.segments).Dur("elapsed", time.Since(start)).Msg("pipeline run completed")
	}
	o.metrics.RecordRunEnd(kind, time.Since(start).Seconds())

	event := events.RunEvent{
		EventType:   "run.completed",
		RunID:       runID,
		UserID:      sub.UserID,
		Mode:        string(mode),
		DurationMs:  time.Since(start).Milliseconds(),
		Segments:    stats.segments,
		Timestamp:   time.Now().Unix(),
		FailureKind: kind,
	}
	if err != nil {
		event.EventType = "run.failed"
	}
	if o.publisher != nil {
		if pubErr := o.publisher.PublishRun(ctx, event); pubErr != nil {
			log.Warn().Err(pubErr).Msg("failed to publish run event")
		}
	}
	return err
}

func (o *Orchestrator) run(ctx context.Context, sub Submission, mode Mode, status Status, log zerolog.Logger) (runStats, error) {
	// Received: size is validated before any workspace exists.
	if err := ValidateSize(sub.Size, o.maxVideoBytes); err != nil {
		return runStats{}, err
	}

	workspace, err := o.mkWorkspace()
	if err != nil {
		return runStats{}, &RunError{Kind: FailureUnknown, Err: fmt.Errorf("create workspace: %w", err)}
	}
	// Cleanup happens exactly once, on every exit path.
	defer func() {
		if rmErr := os.RemoveAll(workspace); rmErr != nil {
			log.Error().Err(rmErr).Str("workspace", workspace).Msg("workspace cleanup failed")
		} else {
			log.Debug().Str("workspace", workspace).Msg("workspace removed")
		}
	}()

	videoPath := filepath.Join(workspace, "input_video.mp4")
	audioPath := filepath.Join(workspace, "output_audio.mp3")

	reporter := startProgress(o.messenger, status, "Обрабатываю видео", o.progressInterval, log)

	// Downloading
	if err := o.messenger.Download(ctx, sub.FileID, videoPath); err != nil {
		reporter.Stop()
		return runStats{}, &RunError{Kind: FailureUnknown, Err: fmt.Errorf("download video: %w", err)}
	}
	log.Debug().Str("video", videoPath).Msg("video downloaded")

	// Converting: one whole-file invocation; failure here is fatal.
	if err := o.converter.Convert(ctx, videoPath, audioPath); err != nil {
		reporter.Stop()
		return runStats{}, classifyMediaError(err)
	}
	reporter.Stop()

	info, err := os.Stat(audioPath)
	if err != nil {
		return runStats{}, &RunError{Kind: FailureMissingArtifact, Err: err}
	}
	log.Info().Int64("audioBytes", info.Size()).Msg("conversion finished")

	var stats runStats
	switch mode {
	case ModeAudioOnly:
		if err := o.deliverAudio(status, audioPath, log); err != nil {
			return stats, err
		}

	case ModeTranscriptOnly:
		text, n, err := o.transcribeAll(ctx, audioPath, status, log)
		if err != nil {
			return stats, err
		}
		stats.segments = n
		if err := o.deliverTranscript(status, workspace, text, log); err != nil {
			return stats, err
		}

	case ModeAudioAndTranscript:
		// Audio first, then the transcript.
		if err := o.deliverAudio(status, audioPath, log); err != nil {
			return stats, err
		}
		text, n, err := o.transcribeAll(ctx, audioPath, status, log)
		if err != nil {
			return stats, err
		}
		stats.segments = n
		if err := o.deliverTranscript(status, workspace, text, log); err != nil {
			return stats, err
		}

	default:
		return stats, &RunError{Kind: FailureUnknown, Err: fmt.Errorf("unknown mode %q", mode)}
	}

	if err := o.messenger.DeleteMessage(status.ChatID, status.MessageID); err != nil {
		log.Debug().Err(err).Msg("failed to delete status message")
	}
	return stats, nil
}

// transcribeAll transcribes the audio file, splitting it first when its
// duration exceeds the chunk threshold. Chunks are transcribed in strict
// sequence order and deleted as they are consumed.
func (o *Orchestrator) transcribeAll(ctx context.Context, audioPath string, status Status, log zerolog.Logger) (string, int, error) {
	durationSec, err := o.converter.ProbeDuration(ctx, audioPath)
	if err != nil {
		return "", 0, classifyMediaError(err)
	}
	duration := time.Duration(durationSec * float64(time.Second))
	log.Info().Float64("durationSec", durationSec).Msg("audio duration probed")

	var groups []transcript.Group
	total := 0

	if duration <= o.chunkDuration {
		o.editStatus(status, "Транскрибирую аудио...", log)
		segments, err := o.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return "", 0, classifyTranscribeError(err)
		}
		total = len(segments)
		groups = []transcript.Group{{Segments: segments}}
	} else {
		chunks, err := o.splitter.Split(ctx, audioPath, o.chunkDuration)
		if err != nil {
			return "", 0, classifyMediaError(err)
		}
		for i, chunk := range chunks {
			o.editStatus(status, fmt.Sprintf("Транскрибирую аудио (часть %d/%d)...", i+1, len(chunks)), log)

			segments, err := o.transcriber.Transcribe(ctx, chunk.Path)
			if err != nil {
				return "", 0, classifyTranscribeError(err)
			}
			total += len(segments)
			groups = append(groups, transcript.Group{Segments: segments, Offset: chunk.Offset})

			if rmErr := os.Remove(chunk.Path); rmErr != nil {
				log.Warn().Err(rmErr).Str("chunk", chunk.Path).Msg("failed to delete consumed chunk")
			}
		}
	}

	return transcript.Assemble(groups), total, nil
}

func (o *Orchestrator) deliverAudio(status Status, audioPath string, log zerolog.Logger) error {
	o.editStatus(status, "Отправляю аудио...", log)
	if err := o.messenger.SendDocument(status.ChatID, audioPath, "audio.mp3", "🎵 Аудио извлечено из видео"); err != nil {
		return &RunError{Kind: FailureUnknown, Err: fmt.Errorf("send audio: %w", err)}
	}
	o.metrics.RecordDocumentSent("audio")
	log.Info().Msg("audio delivered")
	return nil
}

func (o *Orchestrator) deliverTranscript(status Status, workspace, text string, log zerolog.Logger) error {
	o.editStatus(status, "Отправляю транскрипцию...", log)

	path := filepath.Join(workspace, "transcription.txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return &RunError{Kind: FailureUnknown, Err: fmt.Errorf("write transcript: %w", err)}
	}

	caption := fmt.Sprintf("📝 Транскрипция (%d символов)", utf8.RuneCountInString(text))
	if err := o.messenger.SendDocument(status.ChatID, path, "transcription.txt", caption); err != nil {
		return &RunError{Kind: FailureUnknown, Err: fmt.Errorf("send transcript: %w", err)}
	}
	o.metrics.RecordDocumentSent("transcript")
	log.Info().Int("chars", utf8.RuneCountInString(text)).Msg("transcript delivered")
	return nil
}

func (o *Orchestrator) editStatus(status Status, text string, log zerolog.Logger) {
	if err := o.messenger.EditMessageText(status.ChatID, status.MessageID, text); err != nil {
		log.Debug().Err(err).Msg("status edit failed")
	}
}
