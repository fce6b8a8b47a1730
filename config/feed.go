package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/skimmer/feed"
	"github.com/use-agent/skimmer/schema"
)

// FeedDef is one feed's declarative YAML definition: where the feed
// lives, how to recognize its items, and how to behave while harvesting.
type FeedDef struct {
	// Source names the feed in logs and the storage ledger.
	Source string `yaml:"source"`

	// URL is the feed page to open.
	URL string `yaml:"url"`

	// Fields maps field names to extraction specs. One field should be
	// marked as the container and one should carry the item URL.
	Fields schema.Schema `yaml:"fields"`

	// ContainerSelector overrides the schema's container field.
	ContainerSelector string `yaml:"container_selector"`

	// URLField and TimestampField name the dedup key and cutoff fields.
	URLField       string `yaml:"url_field"`
	TimestampField string `yaml:"timestamp_field"`

	// ExpandItemSelector names "show more" elements clicked before each
	// extraction pass.
	ExpandItemSelector string `yaml:"expand_item_selector"`

	// MaxItems caps the run; 0 means unbounded.
	MaxItems int `yaml:"max_items"`

	// ContinueOnSeen keeps scanning past already-ingested URLs instead
	// of halting at the first one.
	ContinueOnSeen bool `yaml:"continue_on_seen"`

	// StopAfter is a cutoff date in any common format; items older than
	// this end the run.
	StopAfter string `yaml:"stop_after"`

	// Navigate enables deep scraping of detail pages.
	Navigate *NavigateDef `yaml:"navigate"`
}

// NavigateDef configures detail-page scraping in the YAML file.
type NavigateDef struct {
	ContentSelector string `yaml:"content_selector"`
	WaitNetworkIdle *bool  `yaml:"wait_network_idle"`
	ContentTimeout  string `yaml:"content_timeout"`
	MinDelay        string `yaml:"min_delay"`
	MaxDelay        string `yaml:"max_delay"`
}

// LoadFeed reads and validates one feed definition.
func LoadFeed(path string) (*FeedDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed definition: %w", err)
	}
	var def FeedDef
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to parse feed definition %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feed definition %s: %w", path, err)
	}
	return &def, nil
}

// Validate checks the definition for the mistakes that would otherwise
// surface minutes into a run.
func (d *FeedDef) Validate() error {
	if d.Source == "" {
		return fmt.Errorf("source is required")
	}
	if d.URL == "" {
		return fmt.Errorf("url is required")
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("fields must define at least one field")
	}
	urlField := d.URLField
	if urlField == "" {
		urlField = feed.DefaultURLField
	}
	if _, ok := d.Fields[urlField]; !ok {
		return fmt.Errorf("fields must include the url field %q for deduplication", urlField)
	}
	if d.StopAfter != "" {
		if _, err := dateparse.ParseAny(d.StopAfter); err != nil {
			return fmt.Errorf("stop_after %q is not a recognizable date: %w", d.StopAfter, err)
		}
	}
	if d.Navigate != nil {
		for name, v := range map[string]string{
			"content_timeout": d.Navigate.ContentTimeout,
			"min_delay":       d.Navigate.MinDelay,
			"max_delay":       d.Navigate.MaxDelay,
		} {
			if v == "" {
				continue
			}
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("navigate.%s %q is not a duration: %w", name, v, err)
			}
		}
	}
	return d.Fields.Validate(d.ContainerSelector)
}

// ExtractionConfig assembles the engine's run configuration from the
// feed definition, the environment defaults, and the seed seen-URL set.
func (d *FeedDef) ExtractionConfig(defaults ExtractConfig, seen map[string]struct{}) (feed.Config, error) {
	// Bind the absolute_url transform to this feed's page so relative
	// hrefs dedup against the same absolute form across runs.
	schema.RegisterTransform("absolute_url", schema.AbsoluteURL(d.URL))

	cfg := feed.Config{
		Schema:             d.Fields,
		ContainerSelector:  d.ContainerSelector,
		URLField:           d.URLField,
		TimestampField:     d.TimestampField,
		ExpandItemSelector: d.ExpandItemSelector,
		MaxItems:           d.MaxItems,
		ContinueOnSeen:     d.ContinueOnSeen,
		SeenURLs:           seen,
		InitialLoadTimeout: defaults.InitialLoadTimeout,
		NetworkIdleTimeout: defaults.NetworkIdleTimeout,
		ClickWaitTimeout:   defaults.ClickWaitTimeout,
	}

	if d.StopAfter != "" {
		cutoff, err := dateparse.ParseAny(d.StopAfter)
		if err != nil {
			return feed.Config{}, fmt.Errorf("stop_after: %w", err)
		}
		cfg.StopAfter = cutoff
	}

	if d.Navigate != nil {
		nav := &feed.NavigateOptions{
			ContentSelector: strings.TrimSpace(d.Navigate.ContentSelector),
			WaitNetworkIdle: true,
		}
		if d.Navigate.WaitNetworkIdle != nil {
			nav.WaitNetworkIdle = *d.Navigate.WaitNetworkIdle
		}
		if d.Navigate.ContentTimeout != "" {
			nav.ContentTimeout, _ = time.ParseDuration(d.Navigate.ContentTimeout)
		}
		if d.Navigate.MinDelay != "" {
			nav.MinDelay, _ = time.ParseDuration(d.Navigate.MinDelay)
		}
		if d.Navigate.MaxDelay != "" {
			nav.MaxDelay, _ = time.ParseDuration(d.Navigate.MaxDelay)
		}
		cfg.Navigate = nav
	}

	if defaults.NavPerMinute > 0 {
		cfg.NavLimiter = rate.NewLimiter(rate.Limit(defaults.NavPerMinute/60), max(defaults.NavBurst, 1))
	}

	return cfg, nil
}
