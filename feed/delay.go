package feed

import (
	"context"
	"math/rand/v2"
	"time"
)

// sleepFunc is the engine's single sleeping primitive. It is a field so
// tests can collapse waits to zero; every sleep honors context
// cancellation.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitter applies ±factor random variation to d, floored at 100ms so even
// heavily jittered delays stay human-plausible.
func jitter(rng *rand.Rand, d time.Duration, factor float64) time.Duration {
	if d <= 0 {
		return 0
	}
	sign := 1.0
	if rng.IntN(2) == 0 {
		sign = -1.0
	}
	out := time.Duration(float64(d) * (1 + sign*factor*rng.Float64()))
	return max(out, 100*time.Millisecond)
}

// durationBetween picks a uniform random duration in [lo, hi].
func durationBetween(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int64N(int64(hi-lo)))
}
