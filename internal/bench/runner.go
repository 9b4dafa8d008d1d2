package bench

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Options configures a run.
type Options struct {
	Iterations int
	// PerSecond paces the run; zero or less is unlimited.
	PerSecond float64
	// OnResult is called after every execution, successful or not.
	OnResult func(err error)
}

// NewLimiter paces iterations at perSecond. Zero means unlimited.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Run calls exec opts.Iterations times. Failed executions are counted, not
// timed. Cancellation of ctx stops the run and is returned.
func Run(ctx context.Context, opts Options, exec func(context.Context) error) (Stats, error) {
	limiter := NewLimiter(opts.PerSecond)
	collector := NewCollector(0)

	for i := 0; i < opts.Iterations; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return collector.Stats(), err
		}

		began := time.Now()
		err := exec(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return collector.Stats(), err
			}
			collector.Fail()
		} else {
			collector.Record(time.Since(began))
		}
		if opts.OnResult != nil {
			opts.OnResult(err)
		}
	}

	return collector.Stats(), nil
}
