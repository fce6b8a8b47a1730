package schema

import (
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/araddon/dateparse"

	"github.com/use-agent/skimmer/browser"
)

// TransformFunc converts an extracted value into its final form. A nil
// return drops the value (lists omit it, scalars become null).
type TransformFunc func(value any) any

// ExtractFunc is the escape hatch for fields no declarative spec can
// express. It receives the scoped element and the full spec.
type ExtractFunc func(el browser.Element, spec FieldSpec) (any, error)

var (
	mu         sync.RWMutex
	transforms = map[string]TransformFunc{}
	extractors = map[string]ExtractFunc{}
)

// RegisterTransform makes a named transform available to field specs.
// Later registrations replace earlier ones.
func RegisterTransform(name string, fn TransformFunc) {
	mu.Lock()
	defer mu.Unlock()
	transforms[name] = fn
}

// RegisterExtractor makes a named custom extractor available to field specs.
func RegisterExtractor(name string, fn ExtractFunc) {
	mu.Lock()
	defer mu.Unlock()
	extractors[name] = fn
}

// LookupTransform resolves a registered transform by name.
func LookupTransform(name string) (TransformFunc, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := transforms[name]
	return fn, ok
}

// LookupExtractor resolves a registered extractor by name.
func LookupExtractor(name string) (ExtractFunc, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := extractors[name]
	return fn, ok
}

func init() {
	RegisterTransform("trim", func(v any) any {
		s, ok := v.(string)
		if !ok {
			return v
		}
		return strings.TrimSpace(s)
	})
	RegisterTransform("lower", func(v any) any {
		s, ok := v.(string)
		if !ok {
			return v
		}
		return strings.ToLower(s)
	})
	// "timestamp" parses loosely formatted dates; unparseable values are
	// dropped so they never defeat the cutoff comparison silently.
	RegisterTransform("timestamp", func(v any) any {
		s, ok := v.(string)
		if !ok {
			return v
		}
		t, err := dateparse.ParseAny(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		return t
	})
	RegisterTransform("number", func(v any) any {
		s, ok := v.(string)
		if !ok {
			return v
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
		if err != nil {
			return nil
		}
		return n
	})
	// Without a base URL "absolute_url" can only pass values through; the
	// run setup re-registers it bound to the feed page's URL.
	RegisterTransform("absolute_url", AbsoluteURL(""))
}

// AbsoluteURL builds the "absolute_url" transform: relative href values
// resolve against base. Unparseable values and non-strings pass through.
func AbsoluteURL(base string) TransformFunc {
	root, err := url.Parse(base)
	if err != nil || base == "" {
		return func(v any) any { return v }
	}
	return func(v any) any {
		s, ok := v.(string)
		if !ok || s == "" {
			return v
		}
		ref, err := url.Parse(strings.TrimSpace(s))
		if err != nil {
			return v
		}
		return root.ResolveReference(ref).String()
	}
}
