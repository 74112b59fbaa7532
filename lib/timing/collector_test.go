package timing

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordAndSnapshot(t *testing.T) {
	collector := NewCollector()
	collector.Record("scanner.check_offers", 5*time.Millisecond)
	collector.Record("scanner.check_offers", 7*time.Millisecond)
	collector.Record("scanner.sweep", time.Millisecond)

	snapshot := collector.Snapshot()
	assert.Len(t, snapshot["scanner.check_offers"], 2)
	assert.Len(t, snapshot["scanner.sweep"], 1)
}

func TestTrackRecordsEvenOnError(t *testing.T) {
	collector := NewCollector()
	wantErr := errors.New("boom")

	err := collector.Track("escrow.transfer", func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Len(t, collector.Snapshot()["escrow.transfer"], 1)
}

func TestSnapshotIsACopy(t *testing.T) {
	collector := NewCollector()
	collector.Record("op", time.Millisecond)

	snapshot := collector.Snapshot()
	snapshot["op"][0] = 999

	assert.NotEqual(t, 999.0, collector.Snapshot()["op"][0])
}

func TestConcurrentRecord(t *testing.T) {
	collector := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.Record("op", time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Len(t, collector.Snapshot()["op"], 32)
}
