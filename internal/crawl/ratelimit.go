package crawl

import (
	"context"
	"time"
)

// RateLimiter enforces a fixed-window request budget per minute, the
// politeness contract for hitting shared WordPress hosting.
type RateLimiter struct {
	limit       int
	count       int
	windowStart time.Time
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limit: perMinute,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Wait blocks until the next request is allowed under the budget.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.limit <= 0 {
		return nil
	}

	now := r.now()
	if r.windowStart.IsZero() || now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		r.count = 0
	}

	if r.count >= r.limit {
		wait := time.Minute - now.Sub(r.windowStart)
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
		r.windowStart = r.now()
		r.count = 0
	}

	r.count++
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
