package feed

import (
	"errors"

	"github.com/use-agent/skimmer/browser"
	"github.com/use-agent/skimmer/schema"
)

// extractField pulls one value out of an element per the field spec's
// precedence: custom extractor, then children, then multiple, then the
// scalar default. A missing element resolves to nil, never an error;
// errors are reserved for transport failures and bubble to the scraper,
// which nulls the field without discarding the item.
func extractField(el browser.Element, spec schema.FieldSpec) (any, error) {
	if spec.Extract != "" {
		fn, ok := schema.LookupExtractor(spec.Extract)
		if !ok {
			// Validation rejects unknown names up front; reaching this
			// means the registry changed mid-run.
			return nil, errors.New("extractor not registered: " + spec.Extract)
		}
		return fn(el, spec)
	}

	if len(spec.Children) > 0 {
		container, err := resolveScope(el, spec.Selector)
		if err != nil {
			return nil, err
		}
		if container == nil {
			return map[string]any{}, nil
		}
		obj := make(map[string]any, len(spec.Children))
		for name, child := range spec.Children {
			v, err := extractField(container, child)
			if err != nil {
				return nil, err
			}
			obj[name] = v
		}
		return obj, nil
	}

	if spec.Multiple {
		els, err := el.QueryAll(spec.Selector)
		if err != nil {
			return nil, err
		}
		values := make([]any, 0, len(els))
		for _, match := range els {
			v, err := readValue(match, spec)
			if err != nil {
				return nil, err
			}
			if v != nil {
				values = append(values, v)
			}
		}
		return values, nil
	}

	target, err := resolveScope(el, spec.Selector)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}
	return readValue(target, spec)
}

// resolveScope narrows el by selector. An empty selector reuses el; a
// non-matching selector yields (nil, nil).
func resolveScope(el browser.Element, selector string) (browser.Element, error) {
	if selector == "" {
		return el, nil
	}
	sub, err := el.Query(selector)
	if errors.Is(err, browser.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// readValue reads the element's attribute or visible text and applies the
// spec's transform. A missing attribute reads as nil.
func readValue(el browser.Element, spec schema.FieldSpec) (any, error) {
	var value any
	if spec.Attribute != "" {
		v, ok, err := el.Attribute(spec.Attribute)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		value = v
	} else {
		text, err := el.Text()
		if err != nil {
			return nil, err
		}
		value = text
	}

	if spec.Transform != "" {
		fn, ok := schema.LookupTransform(spec.Transform)
		if !ok {
			return nil, errors.New("transform not registered: " + spec.Transform)
		}
		value = fn(value)
	}
	return value, nil
}
