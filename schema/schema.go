// Package schema defines the declarative field specs that describe how to
// pull structured items out of a feed page. Specs are plain data (YAML
// loadable); behavior is attached through named transforms and extractors
// resolved from registries, so a feed definition never embeds code.
package schema

import (
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/skimmer/models"
)

// FieldSpec describes how to extract one value from an element.
//
// Resolution precedence, first match wins:
//  1. Extract: a registered custom extractor, called with (element, spec)
//  2. Children: resolve a sub-container and recurse per child
//  3. Multiple: query all matches and collect a list
//  4. default: resolve one element, read attribute or text
type FieldSpec struct {
	// Selector scopes the query under the current element. Empty means
	// "use the current element".
	Selector string `yaml:"selector"`

	// Attribute names the attribute to read instead of the visible text.
	Attribute string `yaml:"attribute"`

	// Transform names a registered value transform applied after reading.
	Transform string `yaml:"transform"`

	// Extract names a registered custom extractor. When set it takes
	// precedence over every other attribute of the spec.
	Extract string `yaml:"extract"`

	// Children maps sub-field names to nested specs, producing an object.
	Children map[string]FieldSpec `yaml:"children"`

	// Multiple collects every match into a list instead of the first.
	Multiple bool `yaml:"multiple"`

	// Container marks the field whose selector identifies the one
	// repeating element per feed item. It is not extracted as a value.
	Container bool `yaml:"container"`
}

// Schema is a feed's field map. One field is conventionally the item's
// unique URL key; schemas without it cannot be deduplicated.
type Schema map[string]FieldSpec

// ContainerSelector returns the selector of the field marked as container,
// or "" when the schema has none.
func (s Schema) ContainerSelector() string {
	for _, spec := range s {
		if spec.Container {
			return spec.Selector
		}
	}
	return ""
}

// Validate checks the schema for structural problems: unknown transform or
// extractor names, unparseable selectors, and a missing container when no
// external container selector is supplied.
func (s Schema) Validate(externalContainer string) error {
	containers := 0
	for name, spec := range s {
		if spec.Container {
			containers++
		}
		if err := validateSpec(name, spec); err != nil {
			return err
		}
	}
	if containers == 0 && externalContainer == "" {
		return models.NewExtractError(models.ErrCodeInvalidSchema,
			"no container field and no container selector supplied", nil)
	}
	if containers > 1 {
		return models.NewExtractError(models.ErrCodeInvalidSchema,
			"more than one field marked as container", nil)
	}
	if externalContainer != "" {
		if _, err := cascadia.Parse(externalContainer); err != nil {
			return models.NewExtractError(models.ErrCodeInvalidSchema,
				"container selector "+externalContainer+" does not parse", err)
		}
	}
	return nil
}

func validateSpec(name string, spec FieldSpec) error {
	if spec.Selector != "" {
		if _, err := cascadia.Parse(spec.Selector); err != nil {
			return models.NewExtractError(models.ErrCodeInvalidSchema,
				"field "+name+": selector "+spec.Selector+" does not parse", err)
		}
	}
	if spec.Transform != "" {
		if _, ok := LookupTransform(spec.Transform); !ok {
			return models.NewExtractError(models.ErrCodeInvalidSchema,
				"field "+name+": unknown transform "+spec.Transform, nil)
		}
	}
	if spec.Extract != "" {
		if _, ok := LookupExtractor(spec.Extract); !ok {
			return models.NewExtractError(models.ErrCodeInvalidSchema,
				"field "+name+": unknown extractor "+spec.Extract, nil)
		}
	}
	for child, cs := range spec.Children {
		if err := validateSpec(name+"."+child, cs); err != nil {
			return err
		}
	}
	return nil
}
