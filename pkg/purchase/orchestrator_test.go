package purchase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"restockbot/pkg/browser"
	"restockbot/pkg/config"
	"restockbot/pkg/tracker"
)

// checkoutPage scripts the browser surface the checkout flow touches:
// banner contents per selector, the current location, and click hooks.
type checkoutPage struct {
	mu            sync.Mutex
	visits        []string
	clicks        []string
	dangerBanner  string
	warningBanner string
	resolveID     string
	location      string
	onClick       func(selector string)
	submitLandsOn string
}

func (p *checkoutPage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visits = append(p.visits, url)
	p.location = url
	return nil
}

func (p *checkoutPage) Evaluate(ctx context.Context, expr string, out interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := out.(*string)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(expr, ".alert-danger"):
		*s = p.dangerBanner
	case strings.Contains(expr, ".alert-warning"):
		*s = p.warningBanner
	case strings.Contains(expr, "data-id"):
		*s = p.resolveID
	default:
		*s = ""
	}
	return nil
}

func (p *checkoutPage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *checkoutPage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	hook := p.onClick
	if selector == submitOrderSelector && p.submitLandsOn != "" {
		p.location = p.submitLandsOn
	}
	p.mu.Unlock()
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (p *checkoutPage) TypeHuman(ctx context.Context, text string) error { return nil }
func (p *checkoutPage) PressKey(ctx context.Context, key string) error   { return nil }
func (p *checkoutPage) Closed() bool                                     { return false }
func (p *checkoutPage) Close() error                                     { return nil }

func (p *checkoutPage) visited(fragment string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range p.visits {
		if strings.Contains(v, fragment) {
			return true
		}
	}
	return false
}

func (p *checkoutPage) clicked(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clicks {
		if c == selector {
			return true
		}
	}
	return false
}

type checkoutDriver struct {
	mu    sync.Mutex
	page  *checkoutPage
	pages int
	gone  chan struct{}
}

func newCheckoutDriver(page *checkoutPage) *checkoutDriver {
	return &checkoutDriver{page: page, gone: make(chan struct{})}
}

func (d *checkoutDriver) NewPage(ctx context.Context) (browser.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages++
	return d.page, nil
}
func (d *checkoutDriver) Connected() bool               { return true }
func (d *checkoutDriver) Disconnected() <-chan struct{} { return d.gone }
func (d *checkoutDriver) Close()                        {}

func (d *checkoutDriver) pageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pages
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *recordingNotifier) Notify(title string, lines ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
}

// The .invalid TLD guarantees the side-channel cart fetch fails fast
// instead of reaching a real host.
func checkoutItem() tracker.Item {
	return tracker.Item{
		ID:           "10433",
		NameTokens:   []string{"msi", "rtx", "3060"},
		Price:        389.90,
		DetailLink:   "https://shop.invalid/msi-rtx-3060",
		PurchaseLink: "https://shop.invalid/cart/addItem/10433",
		MatchText:    "*389.9 EUR*\n[msi rtx 3060](https://shop.invalid/msi-rtx-3060)",
	}
}

func newTestOrchestrator(page *checkoutPage) (*Orchestrator, *checkoutDriver, *recordingNotifier) {
	driver := newCheckoutDriver(page)
	n := &recordingNotifier{}
	o := NewOrchestrator(driver, nil, n, NewPurchasedSet(), false)
	return o, driver, n
}

func TestPurchaseCompletesOnConfirmationPage(t *testing.T) {
	page := &checkoutPage{submitLandsOn: "https://shop.invalid/cart/orderConfirmation/abc"}
	o, _, _ := newTestOrchestrator(page)

	if err := o.Purchase(context.Background(), checkoutItem()); err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}

	if !page.visited("/cart/addItem/10433") {
		t.Error("add-to-cart endpoint never visited")
	}
	if !page.visited("/cart/order") {
		t.Error("checkout page never visited")
	}
	if !page.clicked(acceptTermsSelector) {
		t.Error("terms checkbox never clicked")
	}
	if !page.clicked(submitOrderSelector) {
		t.Error("order never submitted")
	}
	if snap := o.Snapshot(); snap.Successes != 1 || snap.Attempts != 1 {
		t.Errorf("stats = %+v", snap)
	}
}

func TestPurchaseCartRejectionStopsBeforeCheckout(t *testing.T) {
	page := &checkoutPage{dangerBanner: "No se ha podido añadir el producto"}
	o, _, _ := newTestOrchestrator(page)

	err := o.Purchase(context.Background(), checkoutItem())
	if !errors.Is(err, ErrCartRejected) {
		t.Fatalf("err = %v, want ErrCartRejected", err)
	}

	if page.visited("/cart/order") {
		t.Error("rejected cart must not proceed to checkout")
	}
	if page.clicked(submitOrderSelector) {
		t.Error("rejected cart must never submit an order")
	}
	if snap := o.Snapshot(); snap.Failures != 1 {
		t.Errorf("Failures = %d, want 1", snap.Failures)
	}
}

func TestPurchaseCancelledBeforeSubmit(t *testing.T) {
	page := &checkoutPage{}
	o, _, _ := newTestOrchestrator(page)
	// Cancellation arrives while the flow is between the terms click and
	// the final submit; after that point it would be too late.
	page.onClick = func(selector string) {
		if selector == acceptTermsSelector {
			o.Cancel()
		}
	}

	err := o.Purchase(context.Background(), checkoutItem())
	if !errors.Is(err, ErrManuallyStopped) {
		t.Fatalf("err = %v, want ErrManuallyStopped", err)
	}
	if page.clicked(submitOrderSelector) {
		t.Error("cancelled purchase must not submit the order")
	}
	if snap := o.Snapshot(); snap.Cancelled != 1 || snap.Failures != 0 {
		t.Errorf("stats = %+v", snap)
	}
}

func TestPurchaseUnresolvableCartLink(t *testing.T) {
	page := &checkoutPage{resolveID: ""}
	o, _, _ := newTestOrchestrator(page)

	item := checkoutItem()
	item.PurchaseLink = ""

	err := o.Purchase(context.Background(), item)
	if !errors.Is(err, ErrPurchaseLinkUnresolved) {
		t.Fatalf("err = %v, want ErrPurchaseLinkUnresolved", err)
	}
	if !page.visited(item.DetailLink) {
		t.Error("resolution must visit the detail page first")
	}
}

func TestPurchaseResolvesCartLinkFromDetailPage(t *testing.T) {
	page := &checkoutPage{
		resolveID:     "10433",
		submitLandsOn: "https://shop.invalid/cart/orderConfirmation/abc",
	}
	o, _, _ := newTestOrchestrator(page)

	item := checkoutItem()
	item.PurchaseLink = ""

	if err := o.Purchase(context.Background(), item); err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if !page.visited("/cart/addItem/10433") {
		t.Error("resolved id never turned into an add-to-cart visit")
	}
}

func TestPurchaseUnconfirmedOrder(t *testing.T) {
	// Submit leaves the browser parked on the checkout page.
	page := &checkoutPage{}
	o, _, _ := newTestOrchestrator(page)

	err := o.Purchase(context.Background(), checkoutItem())
	if !errors.Is(err, ErrOrderNotConfirmed) {
		t.Fatalf("err = %v, want ErrOrderNotConfirmed", err)
	}
}

func TestPurchasePendingExternalPayment(t *testing.T) {
	page := &checkoutPage{submitLandsOn: "https://shop.invalid/tpv/redirect"}
	o, _, _ := newTestOrchestrator(page)

	err := o.Purchase(context.Background(), checkoutItem())
	if !errors.Is(err, ErrPaymentConfirmationPending) {
		t.Fatalf("err = %v, want ErrPaymentConfirmationPending", err)
	}
}

func TestTryPurchaseSkipsAlreadyAttempted(t *testing.T) {
	page := &checkoutPage{}
	o, driver, _ := newTestOrchestrator(page)

	item := checkoutItem()
	o.purchased.MarkAttempt(item.ID)

	cat := &config.CategoryConfig{Name: "cards"}
	o.TryPurchase(context.Background(), cat, item)

	// Give a wrongly-started attempt a moment to surface.
	time.Sleep(50 * time.Millisecond)
	if driver.pageCount() != 0 {
		t.Error("already-attempted item must not start a checkout flow")
	}
}

func TestTryPurchaseCommitsBeforeOutcome(t *testing.T) {
	page := &checkoutPage{dangerBanner: "rejected"}
	o, _, _ := newTestOrchestrator(page)

	item := checkoutItem()
	cat := &config.CategoryConfig{Name: "cards"}
	o.TryPurchase(context.Background(), cat, item)

	if !o.purchased.Contains(item.ID) {
		t.Fatal("attempt must be committed immediately, before the outcome")
	}

	// Even though the attempt fails, the commitment stands.
	deadline := time.After(2 * time.Second)
	for o.Snapshot().Failures == 0 {
		select {
		case <-deadline:
			t.Fatal("background attempt never finished")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !o.purchased.Contains(item.ID) {
		t.Error("failed attempt must stay committed")
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	m := NewLoginManager(newCheckoutDriver(&checkoutPage{}), &recordingNotifier{}, nil, "https://shop.invalid")

	if err := m.Login(context.Background()); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
}
