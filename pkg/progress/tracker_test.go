package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projup/pkg/batch"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestTrackerReportsItems(t *testing.T) {
	var out bytes.Buffer
	tr := New(&out)

	ok := batch.Item{
		Input:           batch.InputFile{Name: "a.prproj", Data: make([]byte, 2048)},
		Status:          batch.StatusProcessing,
		DetectedVersion: "40",
	}
	tr.ItemStarted(ok, 0, 2)
	ok.Status = batch.StatusCompleted
	ok.OutputName = "a_upgraded_v43.prproj"
	tr.ItemFinished(ok, 0, 2)

	bad := batch.Item{Input: batch.InputFile{Name: "b.prproj"}, Status: batch.StatusProcessing}
	tr.ItemStarted(bad, 1, 2)
	bad.Status = batch.StatusError
	bad.ErrorDetail = "version attribute not found"
	tr.ItemFinished(bad, 1, 2)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"Starting processing of 2 document(s)...",
		"[1/2] Upgrading a.prproj (2.0 KiB)",
		"[1/2] a.prproj: v40 -> a_upgraded_v43.prproj",
		"[2/2] Upgrading b.prproj (0 B)",
		"[2/2] b.prproj failed: version attribute not found",
	}, lines)

	succeeded, failed := tr.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
}

func TestTrackerQuietStillCounts(t *testing.T) {
	var out bytes.Buffer
	tr := New(&out)
	tr.SetQuiet(true)

	it := batch.Item{Input: batch.InputFile{Name: "a"}, Status: batch.StatusCompleted}
	tr.ItemStarted(it, 0, 1)
	tr.ItemFinished(it, 0, 1)

	assert.Empty(t, out.String())
	succeeded, _ := tr.Counts()
	assert.Equal(t, 1, succeeded)
}

func TestTrackerSummary(t *testing.T) {
	var out bytes.Buffer
	tr := New(&out)
	start := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	tr.now = fixedClock(start, start.Add(2*time.Second))

	it := batch.Item{Input: batch.InputFile{Name: "a"}, Status: batch.StatusCompleted}
	tr.ItemStarted(it, 0, 1)
	tr.ItemFinished(it, 0, 1)

	w := &Writer{W: &bytes.Buffer{}, Tracker: tr}
	n, err := w.Write(make([]byte, 4096))
	require.NoError(t, err)
	assert.Equal(t, 4096, n)
	assert.Equal(t, uint64(4096), tr.BytesWritten())

	out.Reset()
	tr.Summary()
	assert.Equal(t,
		"Completed processing 1 document(s), 0 failed, wrote 4.0 KiB in 2.0 seconds (avg rate: 2.0 KiB/s)\n",
		out.String())
}

func TestSummaryWithoutItems(t *testing.T) {
	var out bytes.Buffer
	New(&out).Summary()
	assert.Equal(t, "Completed processing 0 document(s), 0 failed, wrote 0 B in 0.0 seconds (avg rate: 0 B/s)\n", out.String())
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.0 KiB", formatSize(1024))
	assert.Equal(t, "1.5 MiB", formatSize(1536*1024))
	assert.Equal(t, "3.0 GiB/s", formatRate(3<<30))
}

func TestWriterWithoutTracker(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{W: &buf}
	_, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", buf.String())
}
