package scanner

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func TestProgressTrackerCountsResults(t *testing.T) {
	results := make(chan ProcessImageResult, 4)
	tracker := newProgressTracker(4, &lockedBuffer{}, results, time.Millisecond)

	results <- ProcessImageResult{Path: "a.png", Action: ActionInserted}
	results <- ProcessImageResult{Path: "b.png", Action: ActionUpdated}
	results <- ProcessImageResult{Path: "c.png", Action: ActionSkipped}
	results <- ProcessImageResult{Path: "d.png", Error: errors.New("cannot read")}
	close(results)

	report := tracker.Stop()
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
}

func TestProgressTrackerIsSilentAfterStop(t *testing.T) {
	for i := 0; i < 20; i++ {
		out := &lockedBuffer{}
		results := make(chan ProcessImageResult, 1)
		tracker := newProgressTracker(1, out, results, time.Microsecond)

		time.Sleep(2 * time.Millisecond)
		results <- ProcessImageResult{Path: "a.png", Action: ActionInserted}
		close(results)
		tracker.Stop()

		written := out.Len()
		time.Sleep(5 * time.Millisecond)
		assert.Equal(t, written, out.Len(), "progress written after Stop")
	}
}
