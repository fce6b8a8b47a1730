package feed

import (
	"context"
	"iter"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/use-agent/skimmer/browser"
	"github.com/use-agent/skimmer/models"
)

// Engine orchestrates scraping, scrolling, and deep navigation into a
// deduplicated sequence of items from one feed page. A single Engine
// drives a single tab; everything runs strictly sequentially because all
// of it mutates or observes the same DOM.
type Engine struct {
	page  browser.Page
	cfg   Config
	rng   *rand.Rand
	sleep sleepFunc

	scroller *scroller
	nav      *navigator

	result *Result
	err    error
}

// New validates cfg, fills defaults, and builds an engine bound to page.
func New(page browser.Page, cfg Config) (*Engine, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	e := &Engine{
		page:  page,
		cfg:   cfg,
		rng:   rng,
		sleep: sleepCtx,
	}
	e.scroller = &scroller{page: page, tuning: cfg.Scroll, rng: rng, sleep: e.sleepVia}
	e.nav = &navigator{page: page, cfg: &e.cfg, rng: rng, sleep: e.sleepVia}
	return e, nil
}

// sleepVia indirects through the engine's sleep field so tests can swap
// it after construction.
func (e *Engine) sleepVia(ctx context.Context, d time.Duration) error {
	return e.sleep(ctx, d)
}

// Run drives the extraction loop, calling emit for each deduplicated item
// in the order it was found. emit returning false stops the run after the
// current item, which is the consumer's cooperative cancellation path.
//
// Run returns a Result tagging why the run ended. The error is non-nil
// only for fatal conditions: the feed page never produced containers, or
// the context was cancelled mid-run.
func (e *Engine) Run(ctx context.Context, emit func(models.Item) bool) (*Result, error) {
	if err := e.page.WaitElement(e.cfg.ContainerSelector, e.cfg.InitialLoadTimeout); err != nil {
		return nil, models.NewExtractError(models.ErrCodePageLost,
			"feed containers never appeared: "+e.cfg.ContainerSelector, err)
	}

	st := newRunState(e.cfg.SeenURLs)
	st.nextPauseAt = e.rng.IntN(e.cfg.Scroll.PauseEveryMax-e.cfg.Scroll.PauseEveryMin+1) + e.cfg.Scroll.PauseEveryMin
	originalURL := e.page.URL()
	slog.Info("extraction starting",
		"url", originalURL,
		"container", e.cfg.ContainerSelector,
		"seeded", len(st.seen),
		"maxItems", e.cfg.MaxItems,
	)

	for {
		if err := ctx.Err(); err != nil {
			return e.finish(st, StopConsumer), err
		}

		// Sustained rate limiting past twice the per-call threshold ends
		// the run outright instead of hammering the host.
		if st.timeouts >= 2*e.cfg.RateLimit.Threshold {
			slog.Error("aborting run due to persistent rate limiting",
				"timeouts", st.timeouts)
			return e.finish(st, StopRateLimit), nil
		}
		if st.timeouts > 0 {
			slog.Debug("consecutive timeouts outstanding", "timeouts", st.timeouts)
		}

		if st.turbo {
			proceed, err := e.turboTick(ctx, st)
			if err != nil {
				return e.finish(st, StopConsumer), err
			}
			if !proceed {
				continue
			}
			// Unseen content surfaced (or turbo stalled out): fall
			// through to a full extraction pass over the loaded
			// containers before resuming the normal loop.
		}

		if e.cfg.ExpandItemSelector != "" {
			e.expandItems(ctx)
		}

		out, err := e.pass(ctx, emit, st, originalURL)
		if err != nil {
			return e.finish(st, StopConsumer), err
		}
		if out.stop != "" {
			return e.finish(st, out.stop), nil
		}

		if st.noNewItems >= e.cfg.Scroll.MaxNoNewItems {
			return e.finish(st, StopNoNewItems), nil
		}
		if !st.budgetLeft(e.cfg.MaxItems) {
			return e.finish(st, StopMaxItems), nil
		}

		if err := e.scroller.step(ctx, st, out.newItems, out.allSeen); err != nil {
			if ctx.Err() != nil {
				return e.finish(st, StopConsumer), ctx.Err()
			}
			slog.Warn("scroll step failed", "error", err)
		}

		if out.allSeen && !st.turbo && st.allSeen >= e.cfg.Turbo.EntryThreshold {
			slog.Info("entering turbo mode", "allSeenStreak", st.allSeen)
			st.turbo = true
			st.sameHeight = 0
			st.turboStalled = 0
		}

		// While skipping through a long seen prefix, growing container
		// counts mean the feed is still feeding; relax the exhaustion
		// counter so the run does not give up mid-backlog.
		if e.cfg.ContinueOnSeen && st.skipped > 0 && !st.turbo && st.noNewItems > 0 {
			if containers, err := e.page.QueryAll(e.cfg.ContainerSelector); err == nil && len(containers) > st.lastCount {
				st.noNewItems--
			}
		}
	}
}

// passOutcome carries a pass's verdict back to the driving loop: a stop
// reason (empty = keep going) plus the counters scrolling needs.
type passOutcome struct {
	stop     StopReason
	newItems int
	allSeen  bool
}

// pass runs one full extraction sweep over the currently loaded
// containers, yielding unseen items in DOM order.
func (e *Engine) pass(ctx context.Context, emit func(models.Item) bool, st *runState, originalURL string) (passOutcome, error) {
	items := scrapeItems(e.page, e.cfg.Schema, e.cfg.ContainerSelector)
	st.lastCount = len(items)

	// Record where the feed sits before any navigation so deep scraping
	// can put it back.
	if top, err := e.page.ScrollTop(); err == nil {
		st.lastScroll = top
	}

	newItems, skipped := 0, 0
	for idx, item := range items {
		if err := ctx.Err(); err != nil {
			return passOutcome{}, err
		}
		if !st.budgetLeft(e.cfg.MaxItems) {
			return passOutcome{stop: StopMaxItems}, nil
		}

		if !e.cfg.StopAfter.IsZero() {
			if ts, ok := item.Timestamp(e.cfg.TimestampField); ok && ts.Before(e.cfg.StopAfter) {
				slog.Info("date cutoff reached",
					"item", ts, "cutoff", e.cfg.StopAfter)
				st.cutoff = true
				return passOutcome{stop: StopDateCutoff}, nil
			}
		}

		url := item.URL(e.cfg.URLField)
		if url == "" {
			// No URL means no dedup key and no detail link; skip.
			continue
		}

		if st.isSeen(url) {
			skipped++
			st.skipped++
			if !e.cfg.ContinueOnSeen {
				// Fail-fast mode: the first seen URL marks the edge of
				// what a prior run already delivered.
				slog.Info("halting at previously seen URL", "url", url)
				return passOutcome{stop: StopSeenURL}, nil
			}
			continue
		}

		st.markSeen(url)
		if e.cfg.Navigate != nil {
			e.nav.deepScrape(ctx, item, idx, originalURL, st)
		}

		if !emit(item) {
			return passOutcome{stop: StopConsumer}, nil
		}
		st.yielded++
		newItems++

		if st.yielded >= st.nextPauseAt {
			// Periodic longer pause; real readers stop to read.
			if err := e.sleep(ctx, jitter(e.rng, 2*time.Second, 0.5)); err != nil {
				return passOutcome{}, err
			}
			st.nextPauseAt = st.yielded +
				e.rng.IntN(e.cfg.Scroll.PauseEveryMax-e.cfg.Scroll.PauseEveryMin+1) +
				e.cfg.Scroll.PauseEveryMin
		}
	}

	if skipped > 0 {
		slog.Debug("skipped already seen items", "count", skipped)
	}

	allSeen := skipped > 0 && skipped == len(items)
	if allSeen {
		st.allSeen++
	} else {
		st.allSeen = 0
	}
	if newItems > 0 {
		st.noNewItems = 0
	} else {
		st.noNewItems++
	}

	return passOutcome{newItems: newItems, allSeen: allSeen}, nil
}

// turboTick runs one turbo-mode iteration: count containers, scroll hard,
// and periodically sample trailing containers for unseen URLs. It returns
// true when the engine should fall through to a full extraction pass.
func (e *Engine) turboTick(ctx context.Context, st *runState) (bool, error) {
	containers, err := e.page.QueryAll(e.cfg.ContainerSelector)
	if err != nil {
		return false, err
	}
	count := len(containers)

	if count > st.lastCount {
		growth := count - st.lastCount
		crossedCadence := count/e.cfg.Turbo.SampleEvery > st.lastCount/e.cfg.Turbo.SampleEvery
		st.lastCount = count
		st.turboStalled = 0
		slog.Debug("turbo progress", "containers", count, "growth", growth)

		// Sample on cadence, or off-cadence when growth is slowing; the
		// exact cadence is a tunable, not a correctness requirement.
		if crossedCadence || growth < e.cfg.Turbo.SlowGrowth {
			if e.probeUnseen(st) {
				slog.Info("unseen URL found in turbo sample, exiting turbo mode")
				st.turbo = false
				return true, nil
			}
		}
	} else {
		st.turboStalled++
		if st.turboStalled >= e.cfg.Turbo.EntryThreshold {
			// No more containers are loading. Probe once more, then fall
			// back to the normal loop so its exhaustion counters can end
			// the run.
			if e.probeUnseen(st) {
				slog.Info("unseen URL found after turbo stall, exiting turbo mode")
			} else {
				slog.Info("turbo mode stalled with no unseen content, resuming normal loop",
					"containers", count)
			}
			st.turbo = false
			st.turboStalled = 0
			return true, nil
		}
	}

	if err := e.scroller.turboScroll(ctx); err != nil && ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

// probeUnseen samples the trailing containers for a URL missing from the
// seen set.
func (e *Engine) probeUnseen(st *runState) bool {
	urls := sampleURLs(e.page, e.cfg.Schema, e.cfg.ContainerSelector,
		e.cfg.URLField, e.cfg.Turbo.SampleSize)
	for _, url := range urls {
		if !st.isSeen(url) {
			return true
		}
	}
	return false
}

// expandItems clicks every visible "show more" element before a pass so
// truncated items extract in full.
func (e *Engine) expandItems(ctx context.Context) {
	els, err := e.page.QueryAll(e.cfg.ExpandItemSelector)
	if err != nil {
		return
	}
	for _, el := range els {
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		if err := el.Click(); err != nil {
			slog.Debug("failed to expand element", "error", err)
			continue
		}
		if e.sleep(ctx, e.cfg.ClickWaitTimeout) != nil {
			return
		}
	}
}

func (e *Engine) finish(st *runState, reason StopReason) *Result {
	res := &Result{Reason: reason, Yielded: st.yielded, Skipped: st.skipped}
	slog.Info("extraction finished",
		"reason", reason, "yielded", res.Yielded, "skipped", res.Skipped)
	return res
}

// Seq adapts Run to a pull-based range-over-func sequence. Breaking out
// of the range stops the engine without computing further passes. After
// iteration, Result and Err report how the run ended.
func (e *Engine) Seq(ctx context.Context) iter.Seq[models.Item] {
	return func(yield func(models.Item) bool) {
		e.result, e.err = e.Run(ctx, yield)
	}
}

// Result returns the outcome of the last Seq iteration, nil before any.
func (e *Engine) Result() *Result { return e.result }

// Err returns the fatal error of the last Seq iteration, if any.
func (e *Engine) Err() error { return e.err }
