package browser

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/skimmer/models"
)

// rodPage adapts a *rod.Page to the Page interface. All waits derive a
// bounded clone via page.Timeout so no call can block forever.
type rodPage struct {
	page *rod.Page
}

// rodElement adapts a *rod.Element.
type rodElement struct {
	el *rod.Element
}

// NewPage wraps a rod page in the transport-neutral Page interface.
func NewPage(page *rod.Page) Page {
	return &rodPage{page: page}
}

func (p *rodPage) Query(selector string) (Element, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodePageLost, "query failed", err)
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return &rodElement{el: els.First()}, nil
}

func (p *rodPage) QueryAll(selector string) ([]Element, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodePageLost, "query failed", err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Navigate(url string, timeout time.Duration) error {
	pg := p.page.Timeout(timeout)
	if err := pg.Navigate(url); err != nil {
		return categorize(err, "navigation failed")
	}
	if err := pg.WaitLoad(); err != nil {
		return categorize(err, "load wait failed")
	}
	return nil
}

func (p *rodPage) Back(timeout time.Duration) error {
	pg := p.page.Timeout(timeout)
	if err := pg.NavigateBack(); err != nil {
		return categorize(err, "history navigation failed")
	}
	if err := pg.WaitLoad(); err != nil {
		return categorize(err, "load wait after back failed")
	}
	return nil
}

func (p *rodPage) WaitElement(selector string, timeout time.Duration) error {
	if _, err := p.page.Timeout(timeout).Element(selector); err != nil {
		return categorize(err, "wait for selector "+selector)
	}
	return nil
}

// WaitLoad waits for the DOM to stop mutating. The 300ms/0.1 window matches
// rod's recommended stability probe and is the minimum usable-page signal.
func (p *rodPage) WaitLoad(timeout time.Duration) error {
	if err := p.page.Timeout(timeout).WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		return categorize(err, "DOM stable wait failed")
	}
	return nil
}

func (p *rodPage) WaitIdle(timeout time.Duration) error {
	pg := p.page.Timeout(timeout)
	wait := pg.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-pg.GetContext().Done():
		return categorize(pg.GetContext().Err(), "network idle wait failed")
	}
}

func (p *rodPage) ScrollBy(dy float64) error {
	_, err := p.page.Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (p *rodPage) ScrollTo(y float64) error {
	_, err := p.page.Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

func (p *rodPage) ScrollTop() (float64, error) {
	res, err := p.page.Eval(`() => window.scrollY`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (p *rodPage) Height() (float64, error) {
	res, err := p.page.Eval(`() => document.documentElement.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (p *rodPage) ViewportHeight() (float64, error) {
	res, err := p.page.Eval(`() => window.innerHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (e *rodElement) Query(selector string) (Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return &rodElement{el: els.First()}, nil
}

func (e *rodElement) QueryAll(selector string) ([]Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) HTML() (string, error) {
	return e.el.HTML()
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}
