// Package media wraps the external ffmpeg/ffprobe tools behind a typed
// adapter and provides chunked audio splitting.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
)

// ErrToolNotFound indicates the external transcoder is not installed.
var ErrToolNotFound = errors.New("ffmpeg is not installed")

// CheckInstalled verifies the transcoder binary is available on PATH.
func CheckInstalled() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrToolNotFound
	}
	return nil
}

// ProcessError describes a failed external tool invocation. Stderr is
// kept for diagnostics and is never shown raw to the end user.
type ProcessError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d", e.Tool, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			// Non-zero exit is reported through ExitCode, not err.
			err = nil
		}
	}
	return result, err
}

// Transcoder invokes ffmpeg/ffprobe with fixed argument templates.
type Transcoder struct {
	runner commandRunner
	log    zerolog.Logger
}

// NewTranscoder creates a Transcoder backed by os/exec.
func NewTranscoder() *Transcoder {
	return &Transcoder{
		runner: execRunner{},
		log:    logging.WithComponent("transcoder"),
	}
}

// Convert strips the video stream and writes an MP3 to outputPath,
// overwriting any existing file. The input file is left untouched.
func (t *Transcoder) Convert(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", "44100",
		"-ac", "2",
		"-ab", "192k",
		"-f", "mp3",
		"-y",
		outputPath,
	}

	res, err := t.runner.Run(ctx, "ffmpeg", args...)
	if err != nil {
		return &ProcessError{Tool: "ffmpeg", ExitCode: -1, Err: err}
	}
	if res.ExitCode != 0 {
		t.log.Error().
			Int("exitCode", res.ExitCode).
			Str("stderr", tail(res.Stderr, 2000)).
			Msg("ffmpeg conversion failed")
		return &ProcessError{Tool: "ffmpeg", ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

// ExtractChunk copies one bounded time-window of audioPath into
// outputPath without re-encoding.
func (t *Transcoder) ExtractChunk(ctx context.Context, audioPath, outputPath string, start, duration time.Duration) error {
	args := []string{
		"-i", audioPath,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-acodec", "copy",
		"-y",
		outputPath,
	}

	res, err := t.runner.Run(ctx, "ffmpeg", args...)
	if err != nil {
		return &ProcessError{Tool: "ffmpeg", ExitCode: -1, Err: err}
	}
	if res.ExitCode != 0 {
		return &ProcessError{Tool: "ffmpeg", ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

// ProbeDuration returns the total duration of a media file in seconds.
func (t *Transcoder) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	res, err := t.runner.Run(ctx, "ffprobe", args...)
	if err != nil {
		return 0, &ProcessError{Tool: "ffprobe", ExitCode: -1, Err: err}
	}
	if res.ExitCode != 0 {
		return 0, &ProcessError{Tool: "ffprobe", ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable ffprobe output %q: %w", strings.TrimSpace(res.Stdout), err)
	}
	return seconds, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
