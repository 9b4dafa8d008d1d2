/**
 * Benchmark Metrics
 * Latency and throughput collection for repeated statement execution
 *
 * Features:
 * - Latency percentiles over every successful execution
 * - Moving-window execution rate from a circular sample buffer
 * - Failure counting separate from timings
 * - Thread-safe metric collection
 *
 * Author: dbscope Team
 * Update History:
 * - 2025-02-08: Adapted for statement benchmarks
 */

package bench

import (
	"sort"
	"sync"
	"time"
)

// Collector records the outcome of each execution.
type Collector struct {
	mu         sync.RWMutex
	samples    *CircularBuffer
	latencies  []time.Duration
	startTime  time.Time
	executions int64
	failures   int64
	windowSize time.Duration
}

// Sample is the running execution count at a point in time.
type Sample struct {
	Timestamp  time.Time
	Executions int64
}

// CircularBuffer is a fixed-size ring of samples.
type CircularBuffer struct {
	buffer []Sample
	size   int
	head   int
	tail   int
	count  int
	mu     sync.RWMutex
}

// Stats summarizes a run.
type Stats struct {
	Executions  int64
	Failures    int64
	Elapsed     time.Duration
	Mean        time.Duration
	Min         time.Duration
	Max         time.Duration
	P50         time.Duration
	P95         time.Duration
	P99         time.Duration
	CurrentRate float64 // executions per second over the window
	AverageRate float64 // executions per second since start
}

// NewCollector creates a collector whose current rate is measured over
// windowSize, 10s when zero.
func NewCollector(windowSize time.Duration) *Collector {
	if windowSize == 0 {
		windowSize = 10 * time.Second
	}

	return &Collector{
		samples:    NewCircularBuffer(256),
		windowSize: windowSize,
		startTime:  time.Now(),
	}
}

// NewCircularBuffer creates a new circular buffer
func NewCircularBuffer(size int) *CircularBuffer {
	if size < 2 {
		size = 2
	}
	return &CircularBuffer{
		buffer: make([]Sample, size),
		size:   size,
	}
}

// Record adds a successful execution that took d.
func (c *Collector) Record(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latencies = append(c.latencies, d)
	c.executions++
	c.samples.Add(Sample{Timestamp: time.Now(), Executions: c.executions})
}

// Fail counts a failed execution.
func (c *Collector) Fail() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
}

// CurrentRate returns executions per second over the recent window.
func (c *Collector) CurrentRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.currentRate()
}

func (c *Collector) currentRate() float64 {
	samples := c.samples.GetRecent(c.windowSize)
	if len(samples) < 2 {
		return 0
	}

	first, last := samples[0], samples[len(samples)-1]
	seconds := last.Timestamp.Sub(first.Timestamp).Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(last.Executions-first.Executions) / seconds
}

// Stats returns the summary of everything recorded so far.
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Executions:  c.executions,
		Failures:    c.failures,
		Elapsed:     time.Since(c.startTime),
		CurrentRate: c.currentRate(),
	}
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.AverageRate = float64(c.executions) / secs
	}

	if len(c.latencies) == 0 {
		return stats
	}

	sorted := append([]time.Duration(nil), c.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	stats.Mean = total / time.Duration(len(sorted))
	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.P50 = Percentile(sorted, 50)
	stats.P95 = Percentile(sorted, 95)
	stats.P99 = Percentile(sorted, 99)
	return stats
}

// Percentile returns the p-th percentile (0-100) of sorted using the
// nearest-rank below.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}

// Add adds a sample to the circular buffer
func (cb *CircularBuffer) Add(sample Sample) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.buffer[cb.head] = sample
	cb.head = (cb.head + 1) % cb.size

	if cb.count < cb.size {
		cb.count++
	} else {
		cb.tail = (cb.tail + 1) % cb.size
	}
}

// GetRecent returns the samples taken within the last duration, oldest
// first.
func (cb *CircularBuffer) GetRecent(duration time.Duration) []Sample {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.count == 0 {
		return nil
	}

	cutoff := time.Now().Add(-duration)
	samples := make([]Sample, 0, cb.count)
	for i := 0; i < cb.count; i++ {
		sample := cb.buffer[(cb.tail+i)%cb.size]
		if sample.Timestamp.After(cutoff) {
			samples = append(samples, sample)
		}
	}
	return samples
}
