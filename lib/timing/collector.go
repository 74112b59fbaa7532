package timing

import (
	"sync"
	"time"
)

// Collector is a process-wide sink of operation durations, created once at
// startup and handed to the components that record into it. The /metrics
// endpoint serves its snapshot.
type Collector struct {
	mu      sync.Mutex
	samples map[string][]float64
}

func NewCollector() *Collector {
	return &Collector{samples: make(map[string][]float64)}
}

// Record appends the duration for name, in milliseconds.
func (c *Collector) Record(name string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples[name] = append(c.samples[name], float64(d.Microseconds())/1000.0)
}

// Track runs fn and records its duration under name, regardless of outcome.
func (c *Collector) Track(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.Record(name, time.Since(start))
	return err
}

// Snapshot returns a copy of all recorded samples.
func (c *Collector) Snapshot() map[string][]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(map[string][]float64, len(c.samples))
	for name, values := range c.samples {
		copied := make([]float64, len(values))
		copy(copied, values)
		snapshot[name] = copied
	}
	return snapshot
}
