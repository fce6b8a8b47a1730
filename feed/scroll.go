package feed

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/use-agent/skimmer/browser"
)

// scrollPattern is a weighted viewport-height multiplier family. Patterns
// are picked at random under normal conditions; bounce additionally
// scrolls partially back up to mimic organic movement.
type scrollPattern int

const (
	patternNormal scrollPattern = iota
	patternFast
	patternSlow
	patternBounce
)

// patternRanges are (min, max) viewport-height multipliers per pattern.
var patternRanges = [...][2]float64{
	patternNormal: {0.8, 1.2},
	patternFast:   {1.5, 2.5},
	patternSlow:   {0.5, 0.8},
	patternBounce: {1.2, 1.5},
}

const (
	bounceUpRatioMin = 0.3
	bounceUpRatioMax = 0.5
	bouncePauseMin   = 200 * time.Millisecond
	bouncePauseMax   = 400 * time.Millisecond
)

// seenOnlyMultiplier escalates scroll distance while passes keep finding
// only already-seen items: 1.5x, 2.0x, ... capped at 5x.
func seenOnlyMultiplier(allSeenStreak int) float64 {
	if allSeenStreak <= 0 {
		return 1.0
	}
	return min(5.0, 1.5+float64(allSeenStreak)*0.5)
}

// scroller decides scroll distance and cadence. It keeps no state of its
// own; everything it needs across passes lives in runState.
type scroller struct {
	page   browser.Page
	tuning ScrollTuning
	rng    *rand.Rand
	sleep  sleepFunc
}

// humanScroll performs one pattern scroll scaled by multiplier.
func (s *scroller) humanScroll(ctx context.Context, pattern scrollPattern, multiplier float64) error {
	viewport, err := s.page.ViewportHeight()
	if err != nil {
		return err
	}
	r := patternRanges[pattern]
	amount := viewport * (r[0] + s.rng.Float64()*(r[1]-r[0])) * multiplier

	if pattern == patternBounce {
		if err := s.page.ScrollBy(amount); err != nil {
			return err
		}
		if err := s.sleep(ctx, durationBetween(s.rng, bouncePauseMin, bouncePauseMax)); err != nil {
			return err
		}
		up := amount * (bounceUpRatioMin + s.rng.Float64()*(bounceUpRatioMax-bounceUpRatioMin))
		return s.page.ScrollBy(-up)
	}

	if multiplier > 1.5 {
		slog.Debug("fast-scrolling", "multiplier", multiplier, "pixels", int(amount))
	}
	return s.page.ScrollBy(amount)
}

// step runs one scroll decision after a normal pass: stagnation tracking,
// pattern choice, and the adaptive post-scroll delay.
func (s *scroller) step(ctx context.Context, st *runState, newItems int, allSeen bool) error {
	height, err := s.page.Height()
	if err != nil {
		return err
	}

	multiplier := 1.0
	if allSeen {
		multiplier = seenOnlyMultiplier(st.allSeen)
	}

	if height == st.lastHeight {
		st.sameHeight++
	} else {
		st.sameHeight = 0
	}
	st.lastHeight = height

	switch {
	case st.sameHeight >= s.tuning.MaxSameHeight:
		// Stuck: alternate between a hard jump to the bottom and a fast
		// pattern scroll until the height moves again.
		st.escalations++
		if st.escalations%2 == 0 {
			slog.Debug("stuck at same height, jumping to bottom")
			if err := s.page.ScrollTo(height); err != nil {
				return err
			}
		} else if err := s.humanScroll(ctx, patternFast, multiplier); err != nil {
			return err
		}
		st.sameHeight = 0
	case allSeen && st.allSeen > 1:
		if err := s.humanScroll(ctx, patternFast, multiplier); err != nil {
			return err
		}
	default:
		pattern := scrollPattern(s.rng.IntN(len(patternRanges)))
		if err := s.humanScroll(ctx, pattern, multiplier); err != nil {
			return err
		}
	}

	return s.sleep(ctx, s.delayAfter(st, newItems, allSeen))
}

// delayAfter is the adaptive post-scroll pause: short when new items were
// found, shrinking toward 50ms while passes find only seen items, longer
// while the page height is stagnating.
func (s *scroller) delayAfter(st *runState, newItems int, allSeen bool) time.Duration {
	switch {
	case newItems > 0:
		return jitter(s.rng, 300*time.Millisecond, s.tuning.JitterFactor)
	case allSeen:
		d := 200*time.Millisecond - time.Duration(st.allSeen)*20*time.Millisecond
		return max(d, 50*time.Millisecond)
	case st.sameHeight > 0:
		return jitter(s.rng, s.tuning.MinDelay, s.tuning.JitterFactor)
	default:
		return jitter(s.rng, 300*time.Millisecond, s.tuning.JitterFactor)
	}
}

// turboScroll is the maximally aggressive variant: jump to twice the
// current document height, twice in a row, with minimal delays.
func (s *scroller) turboScroll(ctx context.Context) error {
	height, err := s.page.Height()
	if err != nil {
		return err
	}
	if err := s.page.ScrollTo(height * 2); err != nil {
		return err
	}
	if err := s.sleep(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	if err := s.page.ScrollTo(height * 2); err != nil {
		return err
	}
	return s.sleep(ctx, 200*time.Millisecond)
}
