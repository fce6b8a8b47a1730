package feed

import (
	"testing"
	"time"

	"github.com/use-agent/skimmer/browser"
	"github.com/use-agent/skimmer/schema"
)

func TestExtractField_TextDefault(t *testing.T) {
	el := &fakeElement{kids: map[string][]*fakeElement{
		".title": {{text: "  Hello World  "}},
	}}

	v, err := extractField(el, schema.FieldSpec{Selector: ".title"})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	if v != "  Hello World  " {
		t.Errorf("got %q, want the raw text", v)
	}
}

func TestExtractField_Attribute(t *testing.T) {
	el := &fakeElement{kids: map[string][]*fakeElement{
		"a": {{text: "link", attrs: map[string]string{"href": "/p/1"}}},
	}}

	v, err := extractField(el, schema.FieldSpec{Selector: "a", Attribute: "href"})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	if v != "/p/1" {
		t.Errorf("got %v, want the href attribute", v)
	}
}

func TestExtractField_MissingAttributeIsNull(t *testing.T) {
	el := &fakeElement{kids: map[string][]*fakeElement{
		"a": {{text: "link"}},
	}}

	v, err := extractField(el, schema.FieldSpec{Selector: "a", Attribute: "data-id"})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	if v != nil {
		t.Errorf("got %v, want nil for a missing attribute", v)
	}
}

func TestExtractField_MissingElementIsNull(t *testing.T) {
	el := &fakeElement{}

	v, err := extractField(el, schema.FieldSpec{Selector: ".absent"})
	if err != nil {
		t.Fatalf("missing elements must not error: %v", err)
	}
	if v != nil {
		t.Errorf("got %v, want nil", v)
	}
}

func TestExtractField_EmptySelectorUsesCurrentElement(t *testing.T) {
	el := &fakeElement{text: "self"}

	v, err := extractField(el, schema.FieldSpec{})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	if v != "self" {
		t.Errorf("got %v, want the element's own text", v)
	}
}

func TestExtractField_TransformApplied(t *testing.T) {
	el := &fakeElement{kids: map[string][]*fakeElement{
		".title": {{text: "  MiXeD  "}},
	}}

	v, err := extractField(el, schema.FieldSpec{Selector: ".title", Transform: "trim"})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	if v != "MiXeD" {
		t.Errorf("got %q, want trimmed text", v)
	}
}

func TestExtractField_Multiple(t *testing.T) {
	el := &fakeElement{kids: map[string][]*fakeElement{
		".tag": {{text: "go"}, {text: "testing"}, {text: "feeds"}},
	}}

	v, err := extractField(el, schema.FieldSpec{Selector: ".tag", Multiple: true})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	tags, ok := v.([]any)
	if !ok || len(tags) != 3 {
		t.Fatalf("got %v, want a 3-element list", v)
	}
	if tags[0] != "go" || tags[2] != "feeds" {
		t.Errorf("list out of order: %v", tags)
	}
}

func TestExtractField_MultipleDropsNullValues(t *testing.T) {
	el := &fakeElement{kids: map[string][]*fakeElement{
		".date": {{text: "2026-01-05"}, {text: "not a date"}},
	}}

	v, err := extractField(el, schema.FieldSpec{
		Selector: ".date", Multiple: true, Transform: "timestamp",
	})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	dates, ok := v.([]any)
	if !ok || len(dates) != 1 {
		t.Fatalf("got %v, want just the parseable date", v)
	}
	if _, ok := dates[0].(time.Time); !ok {
		t.Errorf("got %T, want time.Time", dates[0])
	}
}

func TestExtractField_Children(t *testing.T) {
	el := &fakeElement{kids: map[string][]*fakeElement{
		".author": {{
			kids: map[string][]*fakeElement{
				".name":   {{text: "Ada"}},
				".handle": {{text: "@ada"}},
			},
		}},
	}}

	v, err := extractField(el, schema.FieldSpec{
		Selector: ".author",
		Children: map[string]schema.FieldSpec{
			"name":   {Selector: ".name"},
			"handle": {Selector: ".handle"},
		},
	})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want a nested object", v)
	}
	if obj["name"] != "Ada" || obj["handle"] != "@ada" {
		t.Errorf("nested object = %v", obj)
	}
}

func TestExtractField_ChildrenMissingContainer(t *testing.T) {
	el := &fakeElement{}

	v, err := extractField(el, schema.FieldSpec{
		Selector: ".author",
		Children: map[string]schema.FieldSpec{"name": {Selector: ".name"}},
	})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok || len(obj) != 0 {
		t.Errorf("got %v, want an empty object", v)
	}
}

func TestExtractField_CustomExtractorWins(t *testing.T) {
	schema.RegisterExtractor("testFixed", func(el browser.Element, spec schema.FieldSpec) (any, error) {
		return "overridden", nil
	})

	// The selector points at real text; the named extractor still wins.
	el := &fakeElement{kids: map[string][]*fakeElement{
		".title": {{text: "from selector"}},
	}}
	v, err := extractField(el, schema.FieldSpec{Selector: ".title", Extract: "testFixed"})
	if err != nil {
		t.Fatalf("extractField: %v", err)
	}
	if v != "overridden" {
		t.Errorf("got %v, want the custom extractor value", v)
	}
}

func TestScrapeItems_DOMOrderAndContainerFieldSkipped(t *testing.T) {
	page := newFakePage("div.post",
		newPost("https://feed.example/p/1", "first", "2026-01-01"),
		newPost("https://feed.example/p/2", "second", ""),
	)

	items := scrapeItems(page, testSchema(), "div.post")
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0]["title"] != "first" || items[1]["title"] != "second" {
		t.Errorf("items out of DOM order: %v", items)
	}
	if _, ok := items[0]["item"]; ok {
		t.Error("container field must not appear as an item value")
	}
	if items[1]["created_at"] != nil {
		t.Errorf("missing timestamp should be nil, got %v", items[1]["created_at"])
	}
}

func TestScrapeItems_IsStateless(t *testing.T) {
	page := newFakePage("div.post",
		newPost("https://feed.example/p/1", "one", ""),
	)

	a := scrapeItems(page, testSchema(), "div.post")
	b := scrapeItems(page, testSchema(), "div.post")
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("scrape counts differ: %d vs %d", len(a), len(b))
	}
	if a[0].URL("url") != b[0].URL("url") {
		t.Error("unchanged page must scrape identically")
	}
}

func TestSampleURLs_TrailingWindow(t *testing.T) {
	posts := make([]*fakeElement, 0, 6)
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		posts = append(posts, newPost(u, u, ""))
	}
	page := newFakePage("div.post", posts...)

	urls := sampleURLs(page, testSchema(), "div.post", "url", 3)
	if len(urls) != 3 {
		t.Fatalf("got %d urls, want 3", len(urls))
	}
	if urls[0] != "u4" || urls[2] != "u6" {
		t.Errorf("got %v, want the trailing three", urls)
	}
}

func TestSampleURLs_UnknownField(t *testing.T) {
	page := newFakePage("div.post", newPost("u1", "one", ""))
	if urls := sampleURLs(page, testSchema(), "div.post", "nope", 3); urls != nil {
		t.Errorf("got %v, want nil for an unknown url field", urls)
	}
}
