// Package browser wraps a shared headless Chrome session behind the small
// set of navigation and evaluation primitives the trackers and the purchase
// flow actually use.
package browser

import "context"

// Page is one dedicated tab inside the shared session.
type Page interface {
	// Navigate loads the URL and waits for the document to settle.
	Navigate(ctx context.Context, url string) error
	// Evaluate runs a JavaScript expression in the page and decodes the
	// result into out.
	Evaluate(ctx context.Context, expr string, out interface{}) error
	// Location returns the page's current URL.
	Location(ctx context.Context) (string, error)
	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, selector string) error
	// TypeHuman types text with a randomized per-character delay.
	TypeHuman(ctx context.Context, text string) error
	// PressKey sends a single key (tab, enter) to the focused element.
	PressKey(ctx context.Context, key string) error
	Closed() bool
	Close() error
}

// Driver is the shared browsing session. One driver is owned by the
// supervisor and handed to every tracker; each tracker opens its own Page.
type Driver interface {
	NewPage(ctx context.Context) (Page, error)
	Connected() bool
	// Disconnected is closed when the underlying browser session dies.
	Disconnected() <-chan struct{}
	Close()
}

// BodyHTML returns the page body's inner HTML.
func BodyHTML(ctx context.Context, p Page) (string, error) {
	var body string
	if err := p.Evaluate(ctx, "document.body.innerHTML", &body); err != nil {
		return "", err
	}
	return body, nil
}
