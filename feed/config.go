// Package feed implements the infinite-scroll extraction engine: the
// control loop that scrolls a live feed page, extracts visible items
// through a declarative schema, optionally follows each item to its detail
// page, and decides when to stop, back off, or go into turbo mode.
package feed

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/skimmer/models"
	"github.com/use-agent/skimmer/schema"
)

// Defaults for the per-run tunables. Durations are deliberately on the
// conservative side; hosts that throttle get the escalating cooldown on
// top of these.
const (
	// DefaultInitialLoadTimeout bounds the wait for the first feed
	// containers before the run aborts.
	DefaultInitialLoadTimeout = 10 * time.Second

	// DefaultContentTimeout bounds the wait for the detail-page content
	// selector. Expiries feed the rate-limit detector.
	DefaultContentTimeout = 3 * time.Second

	// DefaultNetworkIdleTimeout bounds the network-settle wait after
	// clicking through to a detail page.
	DefaultNetworkIdleTimeout = 5 * time.Second

	// DefaultClickWaitTimeout is the pause after clicking an expandable
	// element so the UI can respond.
	DefaultClickWaitTimeout = 500 * time.Millisecond

	// DefaultNavigateMaxRetries is the number of additional attempts when
	// navigation to a single item fails.
	DefaultNavigateMaxRetries = 2

	// MinContentLength is the minimum character count for detail content
	// to be considered real; shorter fragments fall through to the body.
	MinContentLength = 100

	// DefaultContentSelector locates article content on detail pages.
	DefaultContentSelector = "article"

	// DefaultURLField is the schema field treated as the item's unique key.
	DefaultURLField = "url"

	// DefaultTimestampField is the schema field checked against the cutoff.
	DefaultTimestampField = "created_at"
)

// NavigateOptions configures deep scraping of each item's detail page.
// A nil NavigateOptions on the Config disables deep scraping entirely.
type NavigateOptions struct {
	// ContentSelector locates the content element on the detail page.
	ContentSelector string

	// WaitNetworkIdle waits for network settle after the click; when
	// false only the minimum load signal is awaited.
	WaitNetworkIdle bool

	// ContentTimeout bounds the content-selector wait per call.
	ContentTimeout time.Duration

	// MinDelay and MaxDelay bracket the jittered pause between
	// navigation actions.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// ScrollTuning controls scroll cadence and the stopping counters.
type ScrollTuning struct {
	// MinDelay and MaxDelay bracket the post-scroll pause.
	MinDelay time.Duration
	MaxDelay time.Duration

	// JitterFactor is the random variation applied to delays (0.3 = ±30%).
	JitterFactor float64

	// MaxNoNewItems is how many passes without new items end the run.
	MaxNoNewItems int

	// MaxSameHeight is how many unchanged-height passes trigger the
	// aggressive scroll strategies.
	MaxSameHeight int

	// PauseEveryMin and PauseEveryMax bracket the random item interval
	// after which a longer human pause is inserted.
	PauseEveryMin int
	PauseEveryMax int
}

// RateLimitTuning controls the consecutive-timeout heuristic and the
// escalating cooldown.
type RateLimitTuning struct {
	// Threshold is the consecutive-timeout count that confirms
	// rate-limit suspicion. Twice this count aborts the run.
	Threshold int

	// InitialCooldown is the first escalated sleep once suspicion is
	// confirmed.
	InitialCooldown time.Duration

	// MaxCooldown caps the escalation.
	MaxCooldown time.Duration

	// BackoffFactor is the exponential growth per extra timeout.
	BackoffFactor float64
}

// TurboTuning controls the fast-forward mode used to skip over long
// already-ingested prefixes.
type TurboTuning struct {
	// EntryThreshold is the number of consecutive all-seen passes after
	// which turbo mode engages.
	EntryThreshold int

	// SampleEvery probes for unseen URLs whenever the container count
	// crosses a multiple of this value. The cadence is a tunable, not a
	// correctness property.
	SampleEvery int

	// SampleSize is how many trailing containers each probe inspects.
	SampleSize int

	// SlowGrowth is the per-pass container delta under which a probe is
	// forced even off-cadence.
	SlowGrowth int
}

// Config is the immutable configuration for one extraction run.
type Config struct {
	// Schema describes the fields extracted per item.
	Schema schema.Schema

	// ContainerSelector identifies the repeating item element. When
	// empty it is derived from the schema's container field.
	ContainerSelector string

	// URLField is the item's unique key field. Defaults to "url".
	URLField string

	// TimestampField is checked against StopAfter. Defaults to "created_at".
	TimestampField string

	// ExpandItemSelector, when set, names clickable "show more" elements
	// expanded before each pass.
	ExpandItemSelector string

	// MaxItems caps the number of yielded items; 0 means unbounded.
	MaxItems int

	// ContinueOnSeen keeps scanning past already-seen URLs. When false
	// the run halts at the first seen URL, the "only what's new since
	// last run" mode.
	ContinueOnSeen bool

	// StopAfter is the cutoff: items older than this end the run. The
	// zero time disables the cutoff.
	StopAfter time.Time

	// Navigate enables deep scraping of each item's detail page.
	Navigate *NavigateOptions

	// SeenURLs seeds deduplication with URLs delivered in prior runs.
	// The engine copies the set; the caller's map is never mutated.
	SeenURLs map[string]struct{}

	// NavLimiter optionally paces detail navigations. Nil means unpaced.
	NavLimiter *rate.Limiter

	Scroll    ScrollTuning
	RateLimit RateLimitTuning
	Turbo     TurboTuning

	// InitialLoadTimeout bounds the wait for the first containers.
	InitialLoadTimeout time.Duration

	// NetworkIdleTimeout bounds post-click network settle waits.
	NetworkIdleTimeout time.Duration

	// ClickWaitTimeout is the pause after expanding an element.
	ClickWaitTimeout time.Duration
}

// withDefaults fills zero values, derives the container selector from the
// schema, and validates the result.
func (c Config) withDefaults() (Config, error) {
	if c.URLField == "" {
		c.URLField = DefaultURLField
	}
	if c.TimestampField == "" {
		c.TimestampField = DefaultTimestampField
	}
	if c.ContainerSelector == "" {
		c.ContainerSelector = c.Schema.ContainerSelector()
	}
	if err := c.Schema.Validate(c.ContainerSelector); err != nil {
		return c, err
	}
	if c.ContainerSelector == "" {
		return c, models.NewExtractError(models.ErrCodeInvalidSchema,
			"no container selector found in schema", nil)
	}

	if c.InitialLoadTimeout <= 0 {
		c.InitialLoadTimeout = DefaultInitialLoadTimeout
	}
	if c.NetworkIdleTimeout <= 0 {
		c.NetworkIdleTimeout = DefaultNetworkIdleTimeout
	}
	if c.ClickWaitTimeout <= 0 {
		c.ClickWaitTimeout = DefaultClickWaitTimeout
	}

	if c.Navigate != nil {
		n := *c.Navigate
		if n.ContentSelector == "" {
			n.ContentSelector = DefaultContentSelector
		}
		if n.ContentTimeout <= 0 {
			n.ContentTimeout = DefaultContentTimeout
		}
		if n.MinDelay <= 0 {
			n.MinDelay = time.Second
		}
		if n.MaxDelay <= 0 {
			n.MaxDelay = 3 * time.Second
		}
		c.Navigate = &n
	}

	if c.Scroll.MinDelay <= 0 {
		c.Scroll.MinDelay = 500 * time.Millisecond
	}
	if c.Scroll.MaxDelay <= 0 {
		c.Scroll.MaxDelay = 2 * time.Second
	}
	if c.Scroll.JitterFactor <= 0 {
		c.Scroll.JitterFactor = 0.3
	}
	if c.Scroll.MaxNoNewItems <= 0 {
		c.Scroll.MaxNoNewItems = 3
	}
	if c.Scroll.MaxSameHeight <= 0 {
		c.Scroll.MaxSameHeight = 3
	}
	if c.Scroll.PauseEveryMin <= 0 {
		c.Scroll.PauseEveryMin = 15
	}
	if c.Scroll.PauseEveryMax <= c.Scroll.PauseEveryMin {
		c.Scroll.PauseEveryMax = c.Scroll.PauseEveryMin + 10
	}

	if c.RateLimit.Threshold <= 0 {
		c.RateLimit.Threshold = 2
	}
	if c.RateLimit.InitialCooldown <= 0 {
		c.RateLimit.InitialCooldown = 5 * time.Second
	}
	if c.RateLimit.MaxCooldown <= 0 {
		c.RateLimit.MaxCooldown = 30 * time.Second
	}
	if c.RateLimit.BackoffFactor <= 1 {
		c.RateLimit.BackoffFactor = 2
	}

	if c.Turbo.EntryThreshold <= 0 {
		c.Turbo.EntryThreshold = 5
	}
	if c.Turbo.SampleEvery <= 0 {
		c.Turbo.SampleEvery = 50
	}
	if c.Turbo.SampleSize <= 0 {
		c.Turbo.SampleSize = 10
	}
	if c.Turbo.SlowGrowth <= 0 {
		c.Turbo.SlowGrowth = 10
	}

	return c, nil
}
