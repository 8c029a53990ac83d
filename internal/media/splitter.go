package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
	"github.com/r0man1337/sesc-video-bot/internal/observability/metrics"
)

// Segment is one bounded time-window of an audio file. Chunk files are
// deleted by the consumer as they are used.
type Segment struct {
	Index  int
	Path   string
	Offset time.Duration // start offset in the source audio
}

// Splitter partitions long audio into fixed-duration chunks via
// repeated transcoder invocations.
type Splitter struct {
	trans   *Transcoder
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewSplitter creates a Splitter on top of the given transcoder.
func NewSplitter(t *Transcoder) *Splitter {
	return &Splitter{
		trans:   t,
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("splitter"),
	}
}

// Split cuts audioPath into chunks of chunkDuration, written next to the
// source file as chunk_NNN.mp3. A failed chunk extraction is skipped
// rather than failing the whole split; skips are counted and logged, and
// callers must tolerate fewer segments than ceil(duration/chunkDuration).
func (s *Splitter) Split(ctx context.Context, audioPath string, chunkDuration time.Duration) ([]Segment, error) {
	totalSeconds, err := s.trans.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probe duration: %w", err)
	}
	total := time.Duration(totalSeconds * float64(time.Second))

	var segments []Segment
	index := 0
	for start := time.Duration(0); start < total; start += chunkDuration {
		chunkPath := filepath.Join(filepath.Dir(audioPath), fmt.Sprintf("chunk_%03d.mp3", index))

		err := s.trans.ExtractChunk(ctx, audioPath, chunkPath, start, chunkDuration)
		if err == nil && fileExists(chunkPath) {
			segments = append(segments, Segment{
				Index:  index,
				Path:   chunkPath,
				Offset: start,
			})
			s.metrics.RecordChunkCreated()
		} else {
			s.metrics.RecordChunkSkipped()
			s.log.Warn().
				Err(err).
				Int("index", index).
				Str("chunk", chunkPath).
				Msg("chunk extraction failed, skipping")
		}
		index++
	}

	s.log.Info().
		Int("chunks", len(segments)).
		Int("skipped", index-len(segments)).
		Float64("durationSec", totalSeconds).
		Msg("audio split finished")
	return segments, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
