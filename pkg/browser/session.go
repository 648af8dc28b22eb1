package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"restockbot/pkg/logger"
)

const (
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	acceptLanguage = "es-ES,es;q=0.9,en;q=0.8"
)

// stealthScript masks the headless fingerprint. Installed as a new-document
// script so it runs again on every navigation, not just on the blank tab.
const stealthScript = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined
	});
	Object.defineProperty(navigator, 'languages', {
		get: () => ['es-ES', 'es', 'en']
	});
	window.chrome = { runtime: {} };
`

// Options controls how the shared browser session is launched.
type Options struct {
	Headless bool
	// ExecPath points at a specific Chrome binary; empty uses the system
	// default.
	ExecPath string
	// NavigationsPerMinute caps navigation rate across every page of the
	// session. Zero disables pacing.
	NavigationsPerMinute int
}

// Session is the chromedp-backed Driver implementation. All trackers and the
// purchase flow share one Session; every caller gets its own tab.
type Session struct {
	browserCtx  context.Context
	browserStop context.CancelFunc
	allocStop   context.CancelFunc
	limiter     *rate.Limiter
}

// NewSession launches the browser and applies the anti-detection init
// script before any page is opened.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	allocOpts = append(allocOpts,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 768),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocStop()
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	s := &Session{
		browserCtx:  browserCtx,
		browserStop: browserStop,
		allocStop:   allocStop,
	}
	if opts.NavigationsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(opts.NavigationsPerMinute)/60.0), 1)
	}

	logger.Info("browser session started")
	return s, nil
}

// NewPage opens a dedicated tab and prepares it for undetected use.
func (s *Session) NewPage(ctx context.Context) (Page, error) {
	if !s.Connected() {
		return nil, ErrSessionDisconnected
	}

	tabCtx, tabStop := chromedp.NewContext(s.browserCtx)

	// Materialize the tab, pin the user agent and language headers, and
	// install the stealth script so it survives every navigation.
	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := emulation.SetUserAgentOverride(userAgent).
				WithAcceptLanguage(acceptLanguage).
				Do(ctx); err != nil {
				return err
			}
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		tabStop()
		return nil, fmt.Errorf("failed to prepare page: %w", err)
	}

	return &tab{ctx: tabCtx, stop: tabStop, limiter: s.limiter}, nil
}

// Connected reports whether the underlying browser is still alive.
func (s *Session) Connected() bool {
	return s.browserCtx.Err() == nil
}

// Disconnected is closed when the browser process or its context dies.
func (s *Session) Disconnected() <-chan struct{} {
	return s.browserCtx.Done()
}

// Close tears down the browser and the allocator.
func (s *Session) Close() {
	s.browserStop()
	s.allocStop()
	// Give Chrome a moment to exit before the process does.
	time.Sleep(100 * time.Millisecond)
	logger.Info("browser session closed")
}
