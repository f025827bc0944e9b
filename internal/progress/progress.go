// Package progress implements the periodic stderr progress ticker
// that subcommands opt into with --progress.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ticker counts records as they stream through a subcommand and
// periodically writes a one-line status to an io.Writer (stderr in
// practice), plus a structured debug log entry tagged with a
// per-run correlation id so multiple concurrent invocations can be
// told apart in aggregated logs.
type Ticker struct {
	out      io.Writer
	log      *zap.SugaredLogger
	runID    string
	interval time.Duration

	total   int
	invalid int
	last    time.Time
	start   time.Time
}

// NewTicker returns a Ticker that writes to out every interval. A
// zero interval disables emission from Tick, but the total and invalid
// counts still accumulate so the final Summary is accurate.
func NewTicker(out io.Writer, log *zap.SugaredLogger, interval time.Duration) *Ticker {
	now := time.Now()
	return &Ticker{
		out:      out,
		log:      log,
		runID:    uuid.New().String(),
		interval: interval,
		last:     now,
		start:    now,
	}
}

// Tick records one decoded record (valid or invalid, per the
// ordinal-includes-invalid-records decision) and, if the tick
// interval has elapsed, writes a status line.
func (t *Ticker) Tick(valid bool) {
	t.total++
	if !valid {
		t.invalid++
	}
	if t.interval <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(t.last) < t.interval {
		return
	}
	t.last = now
	t.emit(now)
}

func (t *Ticker) emit(now time.Time) {
	elapsed := now.Sub(t.start)
	fmt.Fprintf(t.out, "%s records=%d invalid=%d elapsed=%s\n", t.runID, t.total, t.invalid, elapsed.Round(time.Second))
	if t.log != nil {
		t.log.Debugw("progress",
			"run_id", t.runID,
			"records", t.total,
			"invalid", t.invalid,
			"elapsed", elapsed.String(),
		)
	}
}

// Summary writes a final status line unconditionally, regardless of
// the tick interval, and returns the total and invalid counts seen.
func (t *Ticker) Summary() (total, invalid int) {
	t.emit(time.Now())
	return t.total, t.invalid
}

// RunID returns the per-run correlation id used to tag every log line
// this Ticker emits.
func (t *Ticker) RunID() string { return t.runID }
