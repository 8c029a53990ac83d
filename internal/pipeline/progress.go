package pipeline

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// statusEditor is the single chat operation the reporter needs.
type statusEditor interface {
	EditMessageText(chatID int64, messageID int, text string) error
}

// progressReporter cycles a status message through an animated dot
// suffix until stopped. Edit failures are swallowed: rate limits and
// "message is not modified" responses are expected during animation.
type progressReporter struct {
	editor   statusEditor
	status   Status
	base     string
	interval time.Duration
	log      zerolog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startProgress(editor statusEditor, status Status, base string, interval time.Duration, log zerolog.Logger) *progressReporter {
	r := &progressReporter{
		editor:   editor,
		status:   status,
		base:     base,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *progressReporter) run() {
	defer close(r.done)

	dots := []string{".", "..", "..."}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	idx := 0
	for {
		if err := r.editor.EditMessageText(r.status.ChatID, r.status.MessageID, r.base+dots[idx]); err != nil {
			r.log.Debug().Err(err).Msg("progress edit failed")
		}
		idx = (idx + 1) % len(dots)

		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop signals the animation to end and waits for the goroutine to
// acknowledge, so later status edits cannot race with animation edits.
func (r *progressReporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	<-r.done
}
