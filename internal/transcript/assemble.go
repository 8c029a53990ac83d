// Package transcript assembles per-chunk timed segments into one
// globally time-ordered, human-readable document.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/r0man1337/sesc-video-bot/internal/transcribe"
)

// Group is the transcription of one audio chunk together with the
// chunk's start offset in the source audio.
type Group struct {
	Segments []transcribe.Segment
	Offset   time.Duration
}

// Assemble shifts every segment by its group's offset, drops segments
// whose trimmed text is empty, renumbers the survivors 1..N in the
// order encountered, and formats each as a block:
//
//	{n}. [{HH:MM:SS} - {HH:MM:SS}]
//	{text}
//
// Blocks are separated by a blank line.
func Assemble(groups []Group) string {
	var blocks []string
	counter := 1

	for _, g := range groups {
		offset := g.Offset.Seconds()
		for _, seg := range g.Segments {
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			blocks = append(blocks, fmt.Sprintf(
				"%d. [%s - %s]\n%s\n",
				counter,
				FormatTime(seg.Start+offset),
				FormatTime(seg.End+offset),
				text,
			))
			counter++
		}
	}

	return strings.Join(blocks, "\n")
}

// FormatTime renders seconds as HH:MM:SS.
func FormatTime(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
