package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/skimmer/browser"
)

// restoreTolerance is how far (in pixels) the readback may differ from
// the target offset and still count as restored.
const restoreTolerance = 500.0

// restoreScroll brings the page back to the pre-navigation offset using
// progressively blunter strategies, verifying each by reading the actual
// offset back. It reports whether the offset landed within tolerance.
func restoreScroll(ctx context.Context, page browser.Page, target float64, sleep sleepFunc) bool {
	if target <= 0 {
		return true
	}

	// Instant jump first; it almost always works.
	_ = page.ScrollTo(target)
	if sleep(ctx, 300*time.Millisecond) != nil {
		return false
	}
	if withinTolerance(page, target) {
		return true
	}
	slog.Debug("scroll restore missed, escalating", "target", target)

	strategies := []func() bool{
		// Smoothed: close the remaining distance in small increments so
		// virtualized feeds get a chance to re-render rows.
		func() bool {
			current, err := page.ScrollTop()
			if err != nil {
				return false
			}
			step := (target - current) / 8
			for range 8 {
				if page.ScrollBy(step) != nil || sleep(ctx, 50*time.Millisecond) != nil {
					return false
				}
			}
			return true
		},
		// Stepped: absolute quarter jumps.
		func() bool {
			for i := 1; i <= 4; i++ {
				if page.ScrollTo(target/4*float64(i)) != nil || sleep(ctx, 100*time.Millisecond) != nil {
					return false
				}
			}
			return true
		},
		// Bottom-then-adjust: force the lazy loader to the end, then back
		// off to 80% of the height.
		func() bool {
			height, err := page.Height()
			if err != nil {
				return false
			}
			if page.ScrollTo(height) != nil || sleep(ctx, 300*time.Millisecond) != nil {
				return false
			}
			if target < height {
				_ = page.ScrollTo(height * 0.8)
			}
			return true
		},
	}

	for i, attempt := range strategies {
		if !attempt() {
			return false
		}
		if sleep(ctx, 300*time.Millisecond) != nil {
			return false
		}
		if withinTolerance(page, target) {
			slog.Debug("scroll restored", "strategy", i+1, "target", target)
			return true
		}
	}

	// Could not land near the target. At minimum avoid sitting at the top
	// of the feed, which would force a full re-scroll.
	if current, err := page.ScrollTop(); err == nil && current < restoreTolerance {
		if height, err := page.Height(); err == nil {
			_ = page.ScrollTo(height * 0.8)
		}
	}
	slog.Warn("scroll position not restored within tolerance", "target", target)
	return false
}

func withinTolerance(page browser.Page, target float64) bool {
	current, err := page.ScrollTop()
	if err != nil {
		return false
	}
	diff := current - target
	if diff < 0 {
		diff = -diff
	}
	return diff < restoreTolerance
}
