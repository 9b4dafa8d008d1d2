package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer(t *testing.T) {
	buffer := NewCircularBuffer(3)

	for i := int64(1); i <= 5; i++ {
		buffer.Add(Sample{Timestamp: time.Now(), Executions: i})
	}

	samples := buffer.GetRecent(time.Minute)
	require.Len(t, samples, 3)
	assert.Equal(t, int64(3), samples[0].Executions, "oldest samples are overwritten")
	assert.Equal(t, int64(5), samples[2].Executions)

	old := NewCircularBuffer(4)
	old.Add(Sample{Timestamp: time.Now().Add(-time.Minute), Executions: 1})
	old.Add(Sample{Timestamp: time.Now(), Executions: 2})
	recent := old.GetRecent(10 * time.Second)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(2), recent[0].Executions)
}

func TestCollectorStats(t *testing.T) {
	c := NewCollector(0)
	for _, ms := range []int{5, 1, 3, 2, 4} {
		c.Record(time.Duration(ms) * time.Millisecond)
	}
	c.Fail()

	stats := c.Stats()
	assert.Equal(t, int64(5), stats.Executions)
	assert.Equal(t, int64(1), stats.Failures)
	assert.Equal(t, time.Millisecond, stats.Min)
	assert.Equal(t, 5*time.Millisecond, stats.Max)
	assert.Equal(t, 3*time.Millisecond, stats.Mean)
	assert.Equal(t, 3*time.Millisecond, stats.P50)
	assert.Greater(t, stats.AverageRate, 0.0)
}

func TestCollectorEmpty(t *testing.T) {
	stats := NewCollector(time.Second).Stats()

	assert.Zero(t, stats.Executions)
	assert.Zero(t, stats.Mean)
	assert.Zero(t, stats.CurrentRate)
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, time.Duration(0), Percentile(nil, 50))
	assert.Equal(t, time.Duration(1), Percentile(sorted, 0))
	assert.Equal(t, time.Duration(5), Percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), Percentile(sorted, 100))
}

func TestRun(t *testing.T) {
	calls := 0
	results := 0
	stats, err := Run(context.Background(), Options{
		Iterations: 6,
		OnResult:   func(error) { results++ },
	}, func(context.Context) error {
		calls++
		if calls%3 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 6, calls)
	assert.Equal(t, 6, results)
	assert.Equal(t, int64(4), stats.Executions)
	assert.Equal(t, int64(2), stats.Failures)
}

func TestRunRateLimited(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), Options{Iterations: 3, PerSecond: 20},
		func(context.Context) error { return nil })
	require.NoError(t, err)

	// The first token is immediate, the next two wait 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Run(ctx, Options{Iterations: 10}, func(ctx context.Context) error {
		calls++
		if calls == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}
