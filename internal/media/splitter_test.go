package media

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
	"github.com/r0man1337/sesc-video-bot/internal/observability/metrics"
)

func newTestSplitter(r commandRunner) *Splitter {
	return &Splitter{
		trans:   newTestTranscoder(r),
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("splitter"),
	}
}

// splitRunner answers ffprobe with a fixed duration and lets the test
// decide per-chunk ffmpeg outcomes.
func splitRunner(t *testing.T, durationSec float64, chunk func(index int, outPath string) commandResult) *fakeRunner {
	t.Helper()
	chunkCalls := 0
	return &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			switch name {
			case "ffprobe":
				return commandResult{Stdout: fmt.Sprintf("%f\n", durationSec), ExitCode: 0}, nil
			case "ffmpeg":
				out := args[len(args)-1]
				res := chunk(chunkCalls, out)
				chunkCalls++
				return res, nil
			default:
				t.Fatalf("unexpected command: %s", name)
				return commandResult{}, nil
			}
		},
	}
}

func TestSplit_NominalChunkCount(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.mp3")
	mustWriteFile(t, audio, "mp3")

	// 650s at 300s chunks => ceil(650/300) = 3 chunks at offsets 0, 300, 600.
	runner := splitRunner(t, 650, func(index int, out string) commandResult {
		mustWriteFile(t, out, "chunk")
		return commandResult{ExitCode: 0}
	})
	s := newTestSplitter(runner)

	segments, err := s.Split(context.Background(), audio, 300*time.Second)
	if err != nil {
		t.Fatalf("Split() = %v, want nil", err)
	}
	if len(segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(segments))
	}
	wantOffsets := []time.Duration{0, 300 * time.Second, 600 * time.Second}
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d index = %d", i, seg.Index)
		}
		if seg.Offset != wantOffsets[i] {
			t.Errorf("segment %d offset = %v, want %v", i, seg.Offset, wantOffsets[i])
		}
		want := filepath.Join(dir, fmt.Sprintf("chunk_%03d.mp3", i))
		if seg.Path != want {
			t.Errorf("segment %d path = %s, want %s", i, seg.Path, want)
		}
	}
}

func TestSplit_ExactMultipleDuration(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.mp3")
	mustWriteFile(t, audio, "mp3")

	runner := splitRunner(t, 600, func(index int, out string) commandResult {
		mustWriteFile(t, out, "chunk")
		return commandResult{ExitCode: 0}
	})
	s := newTestSplitter(runner)

	segments, err := s.Split(context.Background(), audio, 300*time.Second)
	if err != nil {
		t.Fatalf("Split() = %v", err)
	}
	if len(segments) != 2 {
		t.Errorf("segments = %d, want 2 for exact multiple", len(segments))
	}
}

func TestSplit_FailedChunkIsSkipped(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.mp3")
	mustWriteFile(t, audio, "mp3")

	runner := splitRunner(t, 650, func(index int, out string) commandResult {
		if index == 1 {
			return commandResult{ExitCode: 1, Stderr: "boom"}
		}
		mustWriteFile(t, out, "chunk")
		return commandResult{ExitCode: 0}
	})
	s := newTestSplitter(runner)

	segments, err := s.Split(context.Background(), audio, 300*time.Second)
	if err != nil {
		t.Fatalf("Split() = %v, want nil (best-effort)", err)
	}
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2 after one injected failure", len(segments))
	}
	// Surviving segments keep their original offsets and indices.
	if segments[0].Offset != 0 || segments[1].Offset != 600*time.Second {
		t.Errorf("offsets = %v, %v; want 0 and 600s", segments[0].Offset, segments[1].Offset)
	}
	if segments[1].Index != 2 {
		t.Errorf("second surviving segment index = %d, want 2", segments[1].Index)
	}
}

func TestSplit_MissingOutputFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.mp3")
	mustWriteFile(t, audio, "mp3")

	// ffmpeg reports success but never writes the file.
	runner := splitRunner(t, 100, func(index int, out string) commandResult {
		return commandResult{ExitCode: 0}
	})
	s := newTestSplitter(runner)

	segments, err := s.Split(context.Background(), audio, 300*time.Second)
	if err != nil {
		t.Fatalf("Split() = %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("segments = %d, want 0 when output files are missing", len(segments))
	}
}

func TestSplit_ProbeFailureIsFatal(t *testing.T) {
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{ExitCode: 1, Stderr: "bad file"}, nil
		},
	}
	s := newTestSplitter(runner)

	if _, err := s.Split(context.Background(), "audio.mp3", 300*time.Second); err == nil {
		t.Fatal("Split() = nil error, want probe failure")
	}
}
