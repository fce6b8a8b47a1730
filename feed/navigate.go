package feed

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/use-agent/skimmer/browser"
	"github.com/use-agent/skimmer/cleaner"
	"github.com/use-agent/skimmer/models"
)

// navigator clicks through to an item's detail page, extracts richer
// content, and restores the feed page afterwards. It mutates only the
// item passed to it and the run's consecutive-timeout counter; every
// failure degrades to a content sentinel instead of aborting the run.
type navigator struct {
	page  browser.Page
	cfg   *Config
	rng   *rand.Rand
	sleep sleepFunc
}

func blankURL(url string) bool {
	return url == "" || url == "about:blank"
}

// deepScrape fetches detail content for one item. position is the item's
// index among the currently loaded containers.
func (n *navigator) deepScrape(ctx context.Context, item models.Item, position int, originalURL string, st *runState) {
	if n.cfg.Navigate == nil {
		return
	}

	// Never start from a foreign page: a prior item's failed restore
	// would otherwise make every click land in the wrong place.
	if n.page.URL() != originalURL {
		if !n.ensureOriginal(ctx, originalURL, st.lastScroll) {
			slog.Warn("could not establish feed page before deep scrape, abandoning item",
				"position", position)
			item[models.ContentField] = models.SentinelNavFailure
			return
		}
	}

	contentFound := false
	for retry := 0; retry <= DefaultNavigateMaxRetries && !contentFound; retry++ {
		if err := ctx.Err(); err != nil {
			return
		}

		if blankURL(n.page.URL()) {
			slog.Warn("about:blank detected, recovering", "position", position)
			if !n.ensureOriginal(ctx, originalURL, st.lastScroll) {
				continue
			}
		}

		if retry > 0 {
			slog.Debug("deep scrape retry", "attempt", retry, "max", DefaultNavigateMaxRetries)
			if !n.ensureOriginal(ctx, originalURL, st.lastScroll) {
				continue
			}
			d := durationBetween(n.rng, n.cfg.Navigate.MinDelay, n.cfg.Navigate.MaxDelay)
			if n.sleep(ctx, jitter(n.rng, d, 0.3)) != nil {
				return
			}
		}

		if !n.navigateToItem(ctx, position) {
			n.ensureOriginal(ctx, originalURL, st.lastScroll)
			continue
		}

		contentFound = n.extractContent(ctx, item, st)
	}

	// Always hand the feed page back in a known state, success or not.
	if !n.ensureOriginal(ctx, originalURL, st.lastScroll) {
		if err := n.page.Navigate(originalURL, 2*n.cfg.NetworkIdleTimeout); err != nil {
			slog.Error("failed to return to feed page after deep scrape",
				"url", originalURL, "error", err)
			return
		}
		restoreScroll(ctx, n.page, st.lastScroll, n.sleep)
	}
}

// navigateToItem locates the container at position, finds its URL-bearing
// element, clicks it, and waits for the detail page to become usable.
func (n *navigator) navigateToItem(ctx context.Context, position int) bool {
	if n.cfg.NavLimiter != nil {
		if err := n.cfg.NavLimiter.Wait(ctx); err != nil {
			return false
		}
	}

	containers, err := n.page.QueryAll(n.cfg.ContainerSelector)
	if err != nil || position >= len(containers) {
		slog.Debug("container not found for navigation",
			"position", position, "total", len(containers))
		return false
	}

	urlSpec, ok := n.cfg.Schema[n.cfg.URLField]
	if !ok {
		return false
	}

	clickable := containers[position]
	if urlSpec.Selector != "" {
		sub, err := containers[position].Query(urlSpec.Selector)
		if err != nil {
			if !errors.Is(err, browser.ErrNotFound) {
				slog.Debug("url element lookup failed", "error", err)
			}
			return false
		}
		clickable = sub
	}

	if href, ok, _ := clickable.Attribute("href"); ok {
		slog.Debug("navigating to item", "href", href)
	}
	if err := clickable.Click(); err != nil {
		slog.Debug("click failed", "position", position, "error", err)
		return false
	}

	if n.cfg.Navigate.WaitNetworkIdle {
		if err := n.page.WaitIdle(n.cfg.NetworkIdleTimeout); err != nil {
			// Network never settled; a stable DOM is enough to proceed.
			if err := n.page.WaitLoad(2 * time.Second); err != nil {
				return false
			}
		}
	} else if err := n.page.WaitLoad(5 * time.Second); err != nil {
		return false
	}

	d := durationBetween(n.rng, time.Second, 2*time.Second)
	if n.sleep(ctx, jitter(n.rng, d, 0.3)) != nil {
		return false
	}

	return !blankURL(n.page.URL())
}

// extractContent waits for the content selector, applying the rate-limit
// cooldown proactively once suspicion is confirmed, and writes markdown
// (or a sentinel) into the item. The return value reports whether the
// retry loop should stop.
func (n *navigator) extractContent(ctx context.Context, item models.Item, st *runState) bool {
	opts := n.cfg.Navigate
	rl := n.cfg.RateLimit

	// Back off before the wait, not after: once rate limiting is
	// suspected, hammering the content endpoint only digs the hole.
	if st.timeouts >= rl.Threshold {
		d := cooldownFor(st.timeouts, rl)
		slog.Warn("rate limit suspected, cooling down before content wait",
			"timeouts", st.timeouts, "cooldown", d)
		if n.sleep(ctx, d) != nil {
			return false
		}
	}

	if err := n.page.WaitElement(opts.ContentSelector, opts.ContentTimeout); err != nil {
		if models.IsTimeout(err) {
			st.timeouts++
			d := cooldownFor(st.timeouts, rl)
			slog.Warn("content wait timed out",
				"selector", opts.ContentSelector, "timeouts", st.timeouts, "cooldown", d)
			if n.sleep(ctx, d) != nil {
				return false
			}
			if st.timeouts >= rl.Threshold {
				item[models.ContentField] = models.SentinelRateLimited
				return false
			}
		} else {
			slog.Debug("content wait failed", "selector", opts.ContentSelector, "error", err)
			st.timeouts = max(0, st.timeouts-1)
		}
		return n.bodyFallback(item)
	}

	// Several elements can match the content selector; the largest is
	// almost always the article body.
	candidates, err := n.page.QueryAll(opts.ContentSelector)
	if err == nil {
		largest := ""
		for _, el := range candidates {
			if html, err := el.HTML(); err == nil && len(html) > len(largest) {
				largest = html
			}
		}
		if len(largest) > MinContentLength {
			md, err := cleaner.RenderContent(largest, n.page.URL())
			if err == nil && md != "" {
				item[models.ContentField] = md
				st.timeouts = decayTimeouts(st.timeouts, rl.Threshold)
				return true
			}
		}
	}

	st.timeouts = max(0, st.timeouts-1)
	return n.bodyFallback(item)
}

// bodyFallback mines the whole page body when the content selector
// produced nothing usable. It always resolves the item (with real content
// or the no-content sentinel) so the retry loop can stop.
func (n *navigator) bodyFallback(item models.Item) bool {
	body, err := n.page.Query("body")
	if err == nil {
		if html, err := body.HTML(); err == nil {
			if md, err := cleaner.RenderBody(html, n.page.URL()); err == nil && md != "" {
				item[models.ContentField] = md
				return true
			}
		}
	}
	item[models.ContentField] = models.SentinelNoContent
	return true
}

// ensureOriginal returns the tab to originalURL, trying history first and
// direct navigation second, then restores the scroll offset.
func (n *navigator) ensureOriginal(ctx context.Context, originalURL string, scrollPos float64) bool {
	if n.page.URL() == originalURL {
		return true
	}

	// From about:blank there is no history worth going back through.
	if !blankURL(n.page.URL()) {
		if err := n.page.Back(n.cfg.NetworkIdleTimeout); err == nil {
			if n.sleep(ctx, 500*time.Millisecond) != nil {
				return false
			}
			if n.page.URL() == originalURL {
				restoreScroll(ctx, n.page, scrollPos, n.sleep)
				return true
			}
		}
		slog.Debug("history navigation missed, navigating directly", "url", originalURL)
	}

	if err := n.page.Navigate(originalURL, 2*n.cfg.NetworkIdleTimeout); err != nil {
		slog.Warn("direct navigation back to feed failed", "url", originalURL, "error", err)
		return false
	}
	if n.page.URL() != originalURL {
		slog.Warn("landed on unexpected page after recovery",
			"want", originalURL, "got", n.page.URL())
		return false
	}
	restoreScroll(ctx, n.page, scrollPos, n.sleep)
	return true
}
