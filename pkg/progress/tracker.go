// Package progress prints per-document progress for a batch run and the
// byte totals of the archive written afterwards.
package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"projup/pkg/batch"
)

// Tracker reports batch progress to an io.Writer. It implements
// batch.Observer and is safe for concurrent use.
type Tracker struct {
	out   io.Writer
	quiet bool
	now   func() time.Time

	bytesWritten atomic.Uint64

	mu        sync.Mutex
	startTime time.Time
	started   bool
	succeeded int
	failed    int
}

var _ batch.Observer = (*Tracker)(nil)

// New returns a tracker printing to out.
func New(out io.Writer) *Tracker {
	return &Tracker{out: out, now: time.Now}
}

// SetQuiet suppresses per-item lines. The summary is still printed.
func (t *Tracker) SetQuiet(quiet bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quiet = quiet
}

// ItemStarted prints the document about to be upgraded.
func (t *Tracker) ItemStarted(item batch.Item, index, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		t.started = true
		t.startTime = t.now()
		if !t.quiet {
			fmt.Fprintf(t.out, "Starting processing of %d document(s)...\n", total)
		}
	}
	if t.quiet {
		return
	}
	fmt.Fprintf(t.out, "[%d/%d] Upgrading %s (%s)\n",
		index+1, total, item.Name(), formatSize(uint64(len(item.Input.Data))))
}

// ItemFinished prints the outcome of one document.
func (t *Tracker) ItemFinished(item batch.Item, index, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch item.Status {
	case batch.StatusCompleted:
		t.succeeded++
		if !t.quiet {
			fmt.Fprintf(t.out, "[%d/%d] %s: v%s -> %s\n",
				index+1, total, item.Name(), item.DetectedVersion, item.OutputName)
		}
	case batch.StatusError:
		t.failed++
		if !t.quiet {
			fmt.Fprintf(t.out, "[%d/%d] %s failed: %s\n",
				index+1, total, item.Name(), item.ErrorDetail)
		}
	}
}

// AddBytes adds written archive bytes to the running total.
func (t *Tracker) AddBytes(n uint64) {
	if n > 0 {
		t.bytesWritten.Add(n)
	}
}

// BytesWritten returns the number of bytes counted so far.
func (t *Tracker) BytesWritten() uint64 {
	return t.bytesWritten.Load()
}

// Counts returns the number of completed and failed documents seen.
func (t *Tracker) Counts() (succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.succeeded, t.failed
}

// Summary prints the closing line for the run.
func (t *Tracker) Summary() {
	t.mu.Lock()
	defer t.mu.Unlock()

	totalTime := 0.0
	if t.started {
		totalTime = t.now().Sub(t.startTime).Seconds()
	}
	written := t.bytesWritten.Load()
	avgRate := uint64(0)
	if totalTime >= 0.001 {
		avgRate = uint64(float64(written) / totalTime)
	}
	fmt.Fprintf(t.out, "Completed processing %d document(s), %d failed, wrote %s in %.1f seconds (avg rate: %s)\n",
		t.succeeded, t.failed, formatSize(written), totalTime, formatRate(avgRate))
}

// formatSize returns a human-readable size string
func formatSize(bytes uint64) string {
	return humanize(bytes, "")
}

// formatRate returns a human-readable rate string
func formatRate(bytesPerSec uint64) string {
	return humanize(bytesPerSec, "/s")
}

func humanize(n uint64, suffix string) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B%s", n, suffix)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB%s", float64(n)/float64(div), "KMGTPE"[exp], suffix)
}

// Writer is a writer that tracks bytes written for progress reporting
type Writer struct {
	W       io.Writer
	Tracker *Tracker
}

// Write implements io.Writer and tracks bytes written
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	if n > 0 && pw.Tracker != nil {
		pw.Tracker.AddBytes(uint64(n))
	}
	return
}
