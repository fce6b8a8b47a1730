package feed

import (
	"context"
	"time"

	"github.com/use-agent/skimmer/browser"
	"github.com/use-agent/skimmer/schema"
)

// noSleep collapses all engine waits; tests never spend real time.
func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// fakeElement is an in-memory DOM element backing the browser interfaces.
type fakeElement struct {
	text    string
	html    string
	attrs   map[string]string
	hidden  bool
	kids    map[string][]*fakeElement
	onClick func()
}

func (e *fakeElement) Query(selector string) (browser.Element, error) {
	if els := e.kids[selector]; len(els) > 0 {
		return els[0], nil
	}
	return nil, browser.ErrNotFound
}

func (e *fakeElement) QueryAll(selector string) ([]browser.Element, error) {
	els := e.kids[selector]
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (e *fakeElement) Attribute(name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) HTML() (string, error) { return e.html, nil }

func (e *fakeElement) Visible() (bool, error) { return !e.hidden, nil }

func (e *fakeElement) Click() error {
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

// fakePage is an in-memory tab. Containers matching containerSel are the
// feed items; extra holds any other page-level selector matches.
type fakePage struct {
	url     string
	history []string

	containerSel string
	containers   []*fakeElement
	extra        map[string][]*fakeElement

	scrollTop float64
	height    float64
	viewport  float64

	// waitElement, when set, overrides the default nil result.
	waitElement func(selector string) error

	// onScrollTo observes absolute scrolls before they apply.
	onScrollTo func(y float64)

	// applyScroll, when set, decides the resulting offset of any scroll;
	// restore tests use it to model pages that fight back.
	applyScroll func(target float64) float64

	scrollToCalls []float64
	scrollByCalls []float64
}

func newFakePage(containerSel string, containers ...*fakeElement) *fakePage {
	return &fakePage{
		url:          "https://feed.example/home",
		containerSel: containerSel,
		containers:   containers,
		height:       4000,
		viewport:     800,
	}
}

func (p *fakePage) Query(selector string) (browser.Element, error) {
	if els := p.extra[selector]; len(els) > 0 {
		return els[0], nil
	}
	if selector == p.containerSel && len(p.containers) > 0 {
		return p.containers[0], nil
	}
	return nil, browser.ErrNotFound
}

func (p *fakePage) QueryAll(selector string) ([]browser.Element, error) {
	if selector == p.containerSel {
		out := make([]browser.Element, len(p.containers))
		for i, el := range p.containers {
			out[i] = el
		}
		return out, nil
	}
	els := p.extra[selector]
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Navigate(url string, timeout time.Duration) error {
	p.history = append(p.history, p.url)
	p.url = url
	return nil
}

func (p *fakePage) Back(timeout time.Duration) error {
	if n := len(p.history); n > 0 {
		p.url = p.history[n-1]
		p.history = p.history[:n-1]
	}
	return nil
}

func (p *fakePage) WaitElement(selector string, timeout time.Duration) error {
	if p.waitElement != nil {
		return p.waitElement(selector)
	}
	return nil
}

func (p *fakePage) WaitLoad(timeout time.Duration) error { return nil }

func (p *fakePage) WaitIdle(timeout time.Duration) error { return nil }

func (p *fakePage) ScrollBy(dy float64) error {
	p.scrollByCalls = append(p.scrollByCalls, dy)
	p.scrollTop = p.settle(p.scrollTop + dy)
	return nil
}

func (p *fakePage) ScrollTo(y float64) error {
	p.scrollToCalls = append(p.scrollToCalls, y)
	if p.onScrollTo != nil {
		p.onScrollTo(y)
	}
	p.scrollTop = p.settle(y)
	return nil
}

func (p *fakePage) settle(target float64) float64 {
	if p.applyScroll != nil {
		return p.applyScroll(target)
	}
	return clamp(target, 0, p.height)
}

func (p *fakePage) ScrollTop() (float64, error) { return p.scrollTop, nil }

func (p *fakePage) Height() (float64, error) { return p.height, nil }

func (p *fakePage) ViewportHeight() (float64, error) { return p.viewport, nil }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// newPost builds one feed container with an anchor, a title, and an
// optional timestamp element.
func newPost(url, title, ts string) *fakeElement {
	post := &fakeElement{
		kids: map[string][]*fakeElement{
			"a":      {{text: title, attrs: map[string]string{"href": url}}},
			".title": {{text: title}},
		},
	}
	if ts != "" {
		post.kids["time"] = []*fakeElement{{text: ts}}
	}
	return post
}

func testSchema() schema.Schema {
	return schema.Schema{
		"item":       {Selector: "div.post", Container: true},
		"url":        {Selector: "a", Attribute: "href"},
		"title":      {Selector: ".title", Transform: "trim"},
		"created_at": {Selector: "time"},
	}
}
