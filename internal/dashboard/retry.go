package dashboard

import (
	"context"
	"time"
)

const defaultRetryStep = 500 * time.Millisecond

// RetryPolicy retries with a linear backoff: the wait before retry n is n*Step.
type RetryPolicy struct {
	Retries int
	Step    time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Step <= 0 {
		p.Step = defaultRetryStep
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// Do runs fn once plus up to Retries more times. It returns the last error,
// or ctx.Err() if the context ends while waiting.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	p = p.normalize()
	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			if serr := p.sleep(ctx, time.Duration(attempt)*p.Step); serr != nil {
				return serr
			}
		}
		if err = fn(attempt); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
