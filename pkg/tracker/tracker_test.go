package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"restockbot/pkg/browser"
	"restockbot/pkg/config"
)

const (
	articleOne = `<article data-id="1" data-name="MSI RTX 3060" data-price="389.90"><a href="/msi-rtx-3060">MSI RTX 3060</a></article>`
	articleTwo = `<article data-id="2" data-name="Gigabyte RTX 3060" data-price="412"><a href="/gigabyte-rtx-3060">Gigabyte RTX 3060</a></article>`
)

type fakePage struct {
	mu       sync.Mutex
	html     string
	visits   []string
	closed   bool
	navBlock chan struct{} // non-nil makes Navigate block until closed
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.visits = append(p.visits, url)
	block := p.navBlock
	p.mu.Unlock()
	if block != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-block:
		}
	}
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, expr string, out interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := out.(*string); ok {
		*s = p.html
	}
	return nil
}

func (p *fakePage) Location(ctx context.Context) (string, error)      { return "", nil }
func (p *fakePage) Click(ctx context.Context, selector string) error  { return nil }
func (p *fakePage) TypeHuman(ctx context.Context, text string) error  { return nil }
func (p *fakePage) PressKey(ctx context.Context, key string) error    { return nil }
func (p *fakePage) Closed() bool                                      { return p.closed }
func (p *fakePage) Close() error                                      { p.closed = true; return nil }

func (p *fakePage) setHTML(html string) {
	p.mu.Lock()
	p.html = html
	p.mu.Unlock()
}

type fakeDriver struct {
	page      *fakePage
	connected bool
	gone      chan struct{}
}

func newFakeDriver(html string) *fakeDriver {
	return &fakeDriver{
		page:      &fakePage{html: html},
		connected: true,
		gone:      make(chan struct{}),
	}
}

func (d *fakeDriver) NewPage(ctx context.Context) (browser.Page, error) { return d.page, nil }
func (d *fakeDriver) Connected() bool                                   { return d.connected }
func (d *fakeDriver) Disconnected() <-chan struct{}                     { return d.gone }
func (d *fakeDriver) Close()                                            {}

type fakeNotifier struct {
	mu    sync.Mutex
	calls [][]string
}

func (n *fakeNotifier) Notify(title string, lines ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, append([]string{title}, lines...))
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fakePurchaser struct {
	mu    sync.Mutex
	items []Item
}

func (p *fakePurchaser) TryPurchase(ctx context.Context, cat *config.CategoryConfig, it Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, it)
}

func (p *fakePurchaser) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func testCategory() *config.CategoryConfig {
	cat := &config.CategoryConfig{
		Name:     "graphics cards",
		URL:      "https://www.pccomponentes.com/tarjetas-graficas",
		Articles: []*config.ItemRule{{Model: []string{"3060"}}},
		MaxPrice: 600,
	}
	cat.Normalize()
	cat.CheckPages = 1
	return cat
}

func newTestTracker(driver *fakeDriver) (*Tracker, *fakeNotifier, *fakePurchaser) {
	n := &fakeNotifier{}
	p := &fakePurchaser{}
	t := New(testCategory(), Options{
		Driver:    driver,
		Notifier:  n,
		Purchaser: p,
		Notify:    true,
		Purchase:  true,
	})
	return t, n, p
}

func TestFirstPollEstablishesBaselineSilently(t *testing.T) {
	driver := newFakeDriver(articleOne)
	tr, n, p := newTestTracker(driver)

	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("baseline poll failed: %v", err)
	}

	if n.count() != 0 {
		t.Errorf("baseline must not notify, got %v", n.calls)
	}
	if p.count() != 0 {
		t.Errorf("baseline must not purchase, got %v", p.items)
	}
	if s := tr.Snapshot(); s.Cycles != 1 || s.Matches != 1 || s.NewItems != 0 {
		t.Errorf("stats after baseline = %+v", s)
	}
}

func TestNewItemTriggersNotificationAndPurchase(t *testing.T) {
	driver := newFakeDriver(articleOne)
	tr, n, p := newTestTracker(driver)

	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("baseline poll failed: %v", err)
	}

	driver.page.setHTML(articleOne + articleTwo)
	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("second poll failed: %v", err)
	}

	if n.count() != 1 {
		t.Fatalf("expected one notification, got %d", n.count())
	}
	if p.count() != 1 || p.items[0].ID != "2" {
		t.Fatalf("expected purchase attempt for id 2, got %+v", p.items)
	}
	if s := tr.Snapshot(); s.NewItems != 1 {
		t.Errorf("NewItems = %d, want 1", s.NewItems)
	}
}

func TestUnchangedSnapshotStaysQuiet(t *testing.T) {
	driver := newFakeDriver(articleOne)
	tr, n, p := newTestTracker(driver)

	for i := 0; i < 3; i++ {
		if err := tr.Update(context.Background(), false); err != nil {
			t.Fatalf("poll %d failed: %v", i, err)
		}
	}

	if n.count() != 0 || p.count() != 0 {
		t.Errorf("unchanged snapshot produced activity: notify=%d purchase=%d", n.count(), p.count())
	}
}

func TestForceNotifyReportsCurrentMatches(t *testing.T) {
	driver := newFakeDriver(articleOne)
	tr, n, _ := newTestTracker(driver)

	if err := tr.Update(context.Background(), true); err != nil {
		t.Fatalf("forced poll failed: %v", err)
	}

	if n.count() != 1 {
		t.Fatalf("forced poll must report matches even on baseline, got %d", n.count())
	}
}

func TestOverlappingUpdateIsRejected(t *testing.T) {
	driver := newFakeDriver(articleOne)
	driver.page.navBlock = make(chan struct{})
	tr, _, _ := newTestTracker(driver)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- tr.Update(context.Background(), false)
	}()

	<-started
	// Wait until the first cycle is actually inside Navigate.
	deadline := time.After(2 * time.Second)
	for {
		driver.page.mu.Lock()
		visiting := len(driver.page.visits) > 0
		driver.page.mu.Unlock()
		if visiting {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first update never reached Navigate")
		case <-time.After(time.Millisecond):
		}
	}

	if err := tr.Update(context.Background(), false); !errors.Is(err, ErrUpdateInFlight) {
		t.Errorf("second update = %v, want ErrUpdateInFlight", err)
	}

	close(driver.page.navBlock)
	if err := <-done; err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	if s := tr.Snapshot(); s.Cycles != 1 {
		t.Errorf("Cycles = %d, want 1: the rejected update must not run a cycle", s.Cycles)
	}
}

func TestInvalidSnapshotAbortsCycle(t *testing.T) {
	driver := newFakeDriver(articleOne)
	tr, n, _ := newTestTracker(driver)

	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("baseline poll failed: %v", err)
	}

	// Price attribute turns non-numeric: validation must reject the page
	// and leave the previous snapshot alone.
	driver.page.setHTML(`<article data-id="1" data-name="MSI RTX 3060" data-price="soon"><a href="/x">x</a></article>`)
	err := tr.Update(context.Background(), false)
	if !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("err = %v, want ErrSnapshotInvalid", err)
	}

	// Recovered page with one extra item: the diff runs against the last
	// good snapshot, so only id 2 is new.
	driver.page.setHTML(articleOne + articleTwo)
	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("recovery poll failed: %v", err)
	}
	if n.count() != 1 {
		t.Errorf("expected one notification after recovery, got %d", n.count())
	}
	if s := tr.Snapshot(); s.Failures != 1 {
		t.Errorf("Failures = %d, want 1", s.Failures)
	}
}

func TestEmptySnapshotAbortsCycle(t *testing.T) {
	driver := newFakeDriver(articleOne)
	tr, n, p := newTestTracker(driver)

	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("baseline poll failed: %v", err)
	}

	// The listing glitches into a page with no articles at all (bot wall,
	// outage). The cycle must abort and keep the baseline.
	driver.page.setHTML(`<div>checking your browser</div>`)
	if err := tr.Update(context.Background(), false); !errors.Is(err, ErrSnapshotEmpty) {
		t.Fatalf("err = %v, want ErrSnapshotEmpty", err)
	}

	// Once the listing comes back unchanged, nothing is new: the known item
	// must not re-notify or re-enter the purchase path.
	driver.page.setHTML(articleOne)
	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("recovery poll failed: %v", err)
	}
	if n.count() != 0 || p.count() != 0 {
		t.Errorf("recovered listing re-reported known item: notify=%d purchase=%d", n.count(), p.count())
	}
	if s := tr.Snapshot(); s.Failures != 1 || s.NewItems != 0 {
		t.Errorf("stats after recovery = %+v", s)
	}
}

func TestStoppedTrackerRefusesUpdates(t *testing.T) {
	driver := newFakeDriver(articleOne)
	tr, _, _ := newTestTracker(driver)

	tr.Stop()
	if err := tr.Update(context.Background(), false); !errors.Is(err, ErrTrackerStopped) {
		t.Errorf("err = %v, want ErrTrackerStopped", err)
	}
	if !tr.Stopped() {
		t.Error("Stopped() = false after Stop")
	}
}

func TestDisconnectedDriverFailsCycle(t *testing.T) {
	driver := newFakeDriver(articleOne)
	driver.connected = false
	tr, _, _ := newTestTracker(driver)

	if err := tr.Update(context.Background(), false); !errors.Is(err, ErrDriverDisconnected) {
		t.Errorf("err = %v, want ErrDriverDisconnected", err)
	}
}

func TestReconnectDiscardsDeadPage(t *testing.T) {
	first := newFakeDriver(articleOne)
	tr, _, _ := newTestTracker(first)

	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("baseline poll failed: %v", err)
	}

	second := newFakeDriver(articleOne + articleTwo)
	tr.Reconnect(second)

	if !first.page.closed {
		t.Error("old page must be closed on reconnect")
	}
	if err := tr.Update(context.Background(), false); err != nil {
		t.Fatalf("poll after reconnect failed: %v", err)
	}
	second.page.mu.Lock()
	visits := len(second.page.visits)
	second.page.mu.Unlock()
	if visits == 0 {
		t.Error("poll after reconnect must use the new driver's page")
	}
}
