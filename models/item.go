package models

import (
	"time"

	"github.com/araddon/dateparse"
)

// ContentField is the item key under which deep-scraped detail content is
// stored by the navigator.
const ContentField = "text_content"

// Content sentinels written when deep scraping cannot produce real content.
// They mark the item as processed without aborting the run.
const (
	SentinelNoContent   = "No content found"
	SentinelRateLimited = "Rate limited - content extraction unsuccessful"
	SentinelNavFailure  = "Error: navigation failure before content extraction"
)

// Item is one extracted feed entry: field name to scalar, list, or nested
// object. Items are built fresh on each scroll pass and are immutable once
// yielded to the consumer.
type Item map[string]any

// URL returns the value of the given URL field as a string, or "" when the
// field is absent, null, or not a string. Items without a URL cannot be
// deduplicated or deep-scraped.
func (it Item) URL(field string) string {
	v, ok := it[field]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Timestamp returns the item's timestamp from the given field. It accepts
// time.Time values directly and parses strings leniently via dateparse.
// The second return is false when the field is absent or unparseable.
func (it Item) Timestamp(field string) (time.Time, bool) {
	v, ok := it[field]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if t == "" {
			return time.Time{}, false
		}
		parsed, err := dateparse.ParseAny(t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
