// Package browser is the boundary to the browser-control transport. The
// feed engine talks to a single live tab exclusively through the Page and
// Element interfaces; the rod-backed implementation lives in this package
// but nothing above it imports rod directly.
package browser

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Query when no element matches the selector.
var ErrNotFound = errors.New("browser: element not found")

// Element is one DOM element handle. Queries are scoped under the element
// and never wait: a missing match returns ErrNotFound immediately.
type Element interface {
	// Query returns the first descendant matching selector, or ErrNotFound.
	Query(selector string) (Element, error)

	// QueryAll returns all descendants matching selector, possibly empty.
	QueryAll(selector string) ([]Element, error)

	// Attribute returns the value of the named attribute. ok is false when
	// the attribute is absent.
	Attribute(name string) (value string, ok bool, err error)

	// Text returns the element's visible text.
	Text() (string, error)

	// HTML returns the element's outer HTML.
	HTML() (string, error)

	// Visible reports whether the element is rendered in the layout.
	Visible() (bool, error)

	// Click dispatches a left click on the element.
	Click() error
}

// Page is one live browser tab. All waits are bounded by explicit
// timeouts; the engine never issues an unbounded call.
type Page interface {
	// Query and QueryAll mirror Element queries at document scope and do
	// not wait for the selector to appear.
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)

	// URL returns the tab's current location.
	URL() string

	// Navigate loads the given URL and waits for the load event.
	Navigate(url string, timeout time.Duration) error

	// Back navigates one entry back in the tab's history.
	Back(timeout time.Duration) error

	// WaitElement blocks until at least one element matches selector.
	// Expiry surfaces as a models.ErrCodeTimeout error so the rate-limit
	// detector can count it.
	WaitElement(selector string, timeout time.Duration) error

	// WaitLoad blocks until the DOM has stopped mutating (the minimum
	// usable-page signal).
	WaitLoad(timeout time.Duration) error

	// WaitIdle blocks until network activity has settled.
	WaitIdle(timeout time.Duration) error

	// ScrollBy scrolls the viewport vertically by dy pixels (negative is up).
	ScrollBy(dy float64) error

	// ScrollTo scrolls the viewport to absolute offset y.
	ScrollTo(y float64) error

	// ScrollTop returns the current vertical scroll offset.
	ScrollTop() (float64, error)

	// Height returns the full document height.
	Height() (float64, error)

	// ViewportHeight returns the window's inner height.
	ViewportHeight() (float64, error)
}
