package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/skimmer/models"
)

// Options controls how the browser session is established.
type Options struct {
	// Headless controls whether a launched browser runs headless.
	Headless bool

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is an optional proxy URL for all requests.
	Proxy string

	// Stealth injects navigator.webdriver masking before navigation.
	Stealth bool

	// NavigationTimeout bounds page.Navigate plus the load wait.
	NavigationTimeout time.Duration
}

// Session manages one browser process (or one attachment to an already
// running browser) for the lifetime of an extraction run.
type Session struct {
	browser *rod.Browser
	opts    Options

	// owned is true when we launched the process ourselves and must kill
	// it on Close. Attached browsers only get their WebSocket closed.
	owned bool
}

// Launch starts a headless browser with automation masking flags and
// connects to it.
func Launch(opts Options) (*Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)

	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewExtractError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewExtractError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &Session{browser: b, opts: opts, owned: true}, nil
}

// Attach connects to an already running browser over its debugging
// endpoint. The browser keeps the user's session and cookies; Close only
// disconnects the WebSocket and never kills the process.
func Attach(controlURL string, opts Options) (*Session, error) {
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewExtractError(
			models.ErrCodeBrowserCrash,
			"failed to attach to browser at "+controlURL,
			err,
		)
	}
	slog.Info("attached to running browser", "controlURL", controlURL)
	return &Session{browser: b, opts: opts, owned: false}, nil
}

// Open creates a tab, applies stealth and headers, navigates to rawURL,
// and returns the transport-neutral Page handle.
func (s *Session) Open(ctx context.Context, rawURL string) (Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewExtractError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}
	page = page.Context(ctx)

	// Stealth JS must be installed before the first navigation or it has
	// no effect on the target page.
	if s.opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// A plausible Referer makes cold visits look like search traffic.
	if u, parseErr := url.Parse(rawURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{
				"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
			},
		}.Call(page)
	}

	p := &rodPage{page: page}
	if err := p.Navigate(rawURL, s.opts.NavigationTimeout); err != nil {
		_ = page.Close()
		return nil, err
	}
	return p, nil
}

// Close tears the session down. Launched browsers are killed; attached
// browsers are only disconnected.
func (s *Session) Close() {
	if s.owned {
		slog.Info("session shutting down: closing browser")
		s.browser.MustClose()
		return
	}
	slog.Info("session shutting down: disconnecting from browser")
	_ = s.browser.Close()
}

// categorize wraps raw rod/context errors into typed ExtractErrors so
// callers can distinguish timeouts (rate-limit evidence) from hard
// transport loss.
func categorize(err error, msg string) *models.ExtractError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewExtractError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewExtractError(models.ErrCodeTimeout, "operation canceled", err)
	default:
		return models.NewExtractError(models.ErrCodeNavigation, msg, err)
	}
}
