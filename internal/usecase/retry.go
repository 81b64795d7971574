package usecase

import (
	"context"
	"math"
	"time"
)

// RetryPolicy bounds receipt delivery. MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     5,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     30 * time.Second,
	Multiplier:      2,
	Jitter:          0.2,
}

// Backoff returns the wait before attempt n+1, where n >= 1 is the attempt that just failed.
// rnd must return values in [0, 1).
func (p RetryPolicy) Backoff(n int, rnd func() float64) time.Duration {
	base := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(n-1))
	if limit := float64(p.MaxInterval); base > limit {
		base = limit
	}
	if p.Jitter > 0 && rnd != nil {
		// spread uniformly over [base*(1-j), base*(1+j)]
		base *= 1 + p.Jitter*(2*rnd()-1)
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultRetryPolicy.Multiplier
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
