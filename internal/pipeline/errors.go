package pipeline

import (
	"errors"
	"fmt"

	"github.com/r0man1337/sesc-video-bot/internal/media"
	"github.com/r0man1337/sesc-video-bot/internal/transcribe"
)

// FailureKind categorizes a failed pipeline run. The orchestrator is
// the sole place that translates failures into user-visible messages.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureOversizeInput
	FailureMissingTranscoder
	FailureTranscode
	FailureMissingArtifact
	FailureTranscriptionAuth
	FailureTranscriptionService
	FailureConfiguration
)

// String returns the stable identifier used in logs, metrics and events.
func (k FailureKind) String() string {
	switch k {
	case FailureOversizeInput:
		return "oversize_input"
	case FailureMissingTranscoder:
		return "missing_transcoder"
	case FailureTranscode:
		return "transcode_failure"
	case FailureMissingArtifact:
		return "missing_output_artifact"
	case FailureTranscriptionAuth:
		return "transcription_auth"
	case FailureTranscriptionService:
		return "transcription_service"
	case FailureConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// RunError is a categorized pipeline failure.
type RunError struct {
	Kind FailureKind
	Err  error
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

const errPrefix = "❌ Произошла ошибка при обработке видео."

// UserMessage returns the message shown to the end user. Diagnostic
// detail stays in the logs.
func (e *RunError) UserMessage() string {
	switch e.Kind {
	case FailureOversizeInput:
		return "❌ Видео слишком большое! Отправьте видео меньшего размера."
	case FailureMissingTranscoder:
		return "❌ Ошибка: FFmpeg не установлен на сервере.\nОбратитесь к администратору для установки FFmpeg."
	case FailureTranscode:
		return errPrefix + "\nОшибка конвертации видео."
	case FailureMissingArtifact:
		return errPrefix + "\nНе удалось создать аудио файл."
	case FailureTranscriptionAuth:
		return errPrefix + "\nОшибка аутентификации сервиса распознавания."
	case FailureTranscriptionService:
		return errPrefix + "\nНе удалось распознать речь. Попробуйте позже."
	case FailureConfiguration:
		return errPrefix + "\nОшибка конфигурации сервиса."
	default:
		return errPrefix + "\n" + e.Kind.String()
	}
}

// AsRunError converts any error into a *RunError, wrapping uncategorized
// errors as FailureUnknown.
func AsRunError(err error) *RunError {
	var re *RunError
	if errors.As(err, &re) {
		return re
	}
	return &RunError{Kind: FailureUnknown, Err: err}
}

// classifyMediaError maps transcoder/prober failures to run failures.
func classifyMediaError(err error) *RunError {
	if errors.Is(err, media.ErrToolNotFound) {
		return &RunError{Kind: FailureMissingTranscoder, Err: err}
	}
	var procErr *media.ProcessError
	if errors.As(err, &procErr) {
		return &RunError{Kind: FailureTranscode, Err: err}
	}
	return &RunError{Kind: FailureUnknown, Err: err}
}

// classifyTranscribeError maps transcription failures to run failures.
func classifyTranscribeError(err error) *RunError {
	if transcribe.IsAuthError(err) {
		return &RunError{Kind: FailureTranscriptionAuth, Err: err}
	}
	return &RunError{Kind: FailureTranscriptionService, Err: err}
}

// ValidateSize rejects submissions whose declared size exceeds the cap.
// Runs before any workspace is created.
func ValidateSize(sizeBytes, maxBytes int64) error {
	if sizeBytes > maxBytes {
		return &RunError{
			Kind: FailureOversizeInput,
			Err:  fmt.Errorf("declared size %d exceeds limit %d", sizeBytes, maxBytes),
		}
	}
	return nil
}
