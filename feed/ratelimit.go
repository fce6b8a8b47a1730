package feed

import (
	"math"
	"time"
)

// cooldownFor computes the escalating sleep once consecutive content-wait
// timeouts have crossed the suspicion threshold:
//
//	min(MaxCooldown, InitialCooldown × BackoffFactor^(timeouts − Threshold))
//
// Below the threshold a short graded cooldown applies instead, scaling
// from 500ms upward, so even the first timeout buys the host some air.
func cooldownFor(timeouts int, t RateLimitTuning) time.Duration {
	if timeouts <= 0 {
		return 0
	}
	if timeouts < t.Threshold {
		return time.Duration(timeouts) * 500 * time.Millisecond
	}
	escalated := float64(t.InitialCooldown) *
		math.Pow(t.BackoffFactor, float64(timeouts-t.Threshold))
	return min(t.MaxCooldown, time.Duration(escalated))
}

// decayTimeouts is the post-success adjustment of the consecutive-timeout
// counter. A single success decrements rather than zeroes it, so sporadic
// single timeouts cannot instantly disarm rate-limit suspicion; well past
// the threshold the floor stays at one.
func decayTimeouts(timeouts, threshold int) int {
	switch {
	case timeouts > threshold:
		return max(1, timeouts-2)
	case timeouts > 0:
		return timeouts - 1
	default:
		return 0
	}
}
