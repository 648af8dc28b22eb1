package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Cookies exports the session's cookies for the given URLs as net/http
// cookies, so side-channel HTTP requests (the quick cart check) ride the
// same authenticated session as the browser.
func (s *Session) Cookies(ctx context.Context, urls ...string) ([]*http.Cookie, error) {
	if !s.Connected() {
		return nil, ErrSessionDisconnected
	}

	runCtx, cancel := context.WithTimeout(s.browserCtx, 10*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var raw []*network.Cookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().WithUrls(urls).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read session cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return cookies, nil
}
