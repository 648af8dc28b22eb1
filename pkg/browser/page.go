package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"golang.org/x/time/rate"
)

// Keys understood by PressKey.
const (
	KeyTab   = kb.Tab
	KeyEnter = kb.Enter
)

const navigateTimeout = 45 * time.Second

// tab is the chromedp-backed Page implementation.
type tab struct {
	ctx     context.Context
	stop    context.CancelFunc
	limiter *rate.Limiter
}

func (t *tab) Navigate(ctx context.Context, url string) error {
	if t.Closed() {
		return ErrPageClosed
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	runCtx, cancel := t.runContext(ctx, navigateTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Let in-page scripts settle; listing pages fill the grid after load.
		chromedp.Sleep(500*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	return nil
}

func (t *tab) Evaluate(ctx context.Context, expr string, out interface{}) error {
	if t.Closed() {
		return ErrPageClosed
	}
	runCtx, cancel := t.runContext(ctx, navigateTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	return nil
}

func (t *tab) Location(ctx context.Context) (string, error) {
	if t.Closed() {
		return "", ErrPageClosed
	}
	runCtx, cancel := t.runContext(ctx, 10*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("location failed: %w", err)
	}
	return url, nil
}

func (t *tab) Click(ctx context.Context, selector string) error {
	if t.Closed() {
		return ErrPageClosed
	}
	runCtx, cancel := t.runContext(ctx, 15*time.Second)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

// TypeHuman types one character at a time with a 30-100ms pause between
// keystrokes. Uniform-speed input is a trivial automation tell.
func (t *tab) TypeHuman(ctx context.Context, text string) error {
	if t.Closed() {
		return ErrPageClosed
	}
	for _, r := range text {
		runCtx, cancel := t.runContext(ctx, 10*time.Second)
		err := chromedp.Run(runCtx, chromedp.KeyEvent(string(r)))
		cancel()
		if err != nil {
			return fmt.Errorf("keystroke failed: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(30+rand.Intn(70)) * time.Millisecond):
		}
	}
	return nil
}

func (t *tab) PressKey(ctx context.Context, key string) error {
	if t.Closed() {
		return ErrPageClosed
	}
	runCtx, cancel := t.runContext(ctx, 10*time.Second)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.KeyEvent(key)); err != nil {
		return fmt.Errorf("keystroke failed: %w", err)
	}
	return nil
}

func (t *tab) Closed() bool {
	return t.ctx.Err() != nil
}

func (t *tab) Close() error {
	t.stop()
	return nil
}

// runContext bounds a chromedp run with both the caller's context and a
// hard timeout, while still executing against the tab's own context chain.
func (t *tab) runContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
