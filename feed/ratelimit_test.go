package feed

import (
	"testing"
	"time"
)

func defaultRateTuning() RateLimitTuning {
	return RateLimitTuning{
		Threshold:       2,
		InitialCooldown: 5 * time.Second,
		MaxCooldown:     30 * time.Second,
		BackoffFactor:   2,
	}
}

func TestCooldownFor(t *testing.T) {
	tuning := defaultRateTuning()
	tests := []struct {
		name     string
		timeouts int
		want     time.Duration
	}{
		{"none", 0, 0},
		{"below threshold", 1, 500 * time.Millisecond},
		{"at threshold", 2, 5 * time.Second},
		{"one past", 3, 10 * time.Second},
		{"two past", 4, 20 * time.Second},
		{"capped", 5, 30 * time.Second},
		{"stays capped", 9, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cooldownFor(tt.timeouts, tuning)
			if got != tt.want {
				t.Errorf("cooldownFor(%d) = %v, want %v", tt.timeouts, got, tt.want)
			}
		})
	}
}

func TestDecayTimeouts(t *testing.T) {
	tests := []struct {
		name      string
		timeouts  int
		threshold int
		want      int
	}{
		{"zero stays zero", 0, 2, 0},
		{"one decrements to zero", 1, 2, 0},
		{"at threshold decrements", 2, 2, 1},
		{"past threshold drops two", 4, 2, 2},
		{"far past threshold drops two", 10, 2, 8},
		{"past threshold floors at one", 3, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decayTimeouts(tt.timeouts, tt.threshold)
			if got != tt.want {
				t.Errorf("decayTimeouts(%d, %d) = %d, want %d",
					tt.timeouts, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestDecayTimeouts_NeverDisarmsInstantly(t *testing.T) {
	// A single success after sustained throttling must leave suspicion
	// armed; only repeated successes wind the counter down to zero.
	n := 6
	steps := 0
	for n > 0 {
		n = decayTimeouts(n, 2)
		steps++
		if steps > 20 {
			t.Fatal("decay never reached zero")
		}
	}
	if steps < 3 {
		t.Errorf("counter disarmed after %d successes, want gradual decay", steps)
	}
}
