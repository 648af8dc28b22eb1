package tracker

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"restockbot/pkg/browser"
	"restockbot/pkg/config"
	"restockbot/pkg/logger"
	"restockbot/pkg/markup"
)

// Options carries the collaborators and switches one tracker needs.
type Options struct {
	Driver    browser.Driver
	Notifier  Notifier
	Purchaser Purchaser
	// Notify mirrors findings to the notification channel; logging always
	// happens regardless.
	Notify bool
	// Purchase is the bot-level purchase switch; the category keeps its own.
	Purchase bool
}

// Stats is a point-in-time snapshot of one tracker's counters.
type Stats struct {
	Name          string    `json:"name"`
	Cycles        int64     `json:"cycles"`
	Failures      int64     `json:"failures"`
	NewItems      int64     `json:"new_items"`
	Matches       int       `json:"matches"`
	LastCycle     time.Time `json:"last_cycle"`
	LastError     string    `json:"last_error,omitempty"`
	SpeedupActive bool      `json:"speedup_active"`
	Stopped       bool      `json:"stopped"`
}

// Tracker owns the polling loop for one watched category. All snapshot
// state is private to the tracker; the inFlight guard keeps cycles from
// overlapping even when a refresh command races the timer.
type Tracker struct {
	name string
	cfg  *config.CategoryConfig
	opts Options

	baseURL string
	log     *zap.Logger

	inFlight atomic.Bool
	stopped  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	driver   browser.Driver
	page     browser.Page
	previous []Item
	primed   bool
	speedup  *SpeedupController
	stats    Stats
}

// New builds a tracker for one category. Call Start to begin polling.
func New(cfg *config.CategoryConfig, opts Options) *Tracker {
	t := &Tracker{
		name:    cfg.Name,
		cfg:     cfg,
		opts:    opts,
		driver:  opts.Driver,
		baseURL: BaseURL(cfg.URL),
		log:     logger.With(zap.String("tracker", cfg.Name)),
		stopCh:  make(chan struct{}),
		speedup: NewSpeedupController(
			cfg.AutoSpeedup,
			secondsToDuration(cfg.MinUpdateSeconds),
			secondsToDuration(cfg.MaxUpdateSeconds),
		),
	}
	t.stats.Name = cfg.Name
	return t
}

// Start performs one immediate baseline poll and then enters the timed
// loop. It returns when the context is done or the tracker is stopped.
func (t *Tracker) Start(ctx context.Context) {
	t.log.Info("tracker started",
		zap.Float64("min_update_seconds", t.cfg.MinUpdateSeconds),
		zap.Float64("max_update_seconds", t.cfg.MaxUpdateSeconds),
		zap.Int("check_pages", t.cfg.CheckPages))

	if err := t.Update(ctx, false); err != nil {
		t.log.Error("initial poll failed", zap.Error(err))
	}
	t.loop(ctx)
}

// loop schedules polls with a uniformly random delay inside the effective
// bounds. Randomized, not fixed-interval: a steady request period is an
// easily detected bot signature.
func (t *Tracker) loop(ctx context.Context) {
	for {
		if t.stopped.Load() {
			t.log.Info("tracker stopped")
			return
		}

		timer := time.NewTimer(t.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-t.stopCh:
			timer.Stop()
			t.log.Info("tracker stopped")
			return
		case <-timer.C:
			if err := t.Update(ctx, false); err != nil {
				t.log.Debug("poll skipped or failed", zap.Error(err))
			}
		}
	}
}

func (t *Tracker) nextDelay() time.Duration {
	t.mu.Lock()
	min, max := t.speedup.Bounds()
	t.mu.Unlock()
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// Stop requests a cooperative stop: the in-flight cycle finishes, no
// further timer is armed.
func (t *Tracker) Stop() {
	t.stopped.Store(true)
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Stopped reports whether the tracker reached its terminal state.
func (t *Tracker) Stopped() bool { return t.stopped.Load() }

// Reconnect hands the tracker a fresh driver after a session rebuild. The
// dead page is discarded and recreated lazily on the next cycle.
func (t *Tracker) Reconnect(driver browser.Driver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.page != nil {
		_ = t.page.Close()
	}
	t.page = nil
	t.driver = driver
	t.log.Info("tracker reconnected to new session")
}

// Update runs one poll cycle. With forceNotify, every currently eligible
// match is reported regardless of novelty. A cycle that fails before
// completion leaves the previous snapshot untouched.
func (t *Tracker) Update(ctx context.Context, forceNotify bool) error {
	if t.stopped.Load() {
		return ErrTrackerStopped
	}
	if !t.inFlight.CompareAndSwap(false, true) {
		// Not queued on purpose: overlapping polls mean the interval or the
		// page count is too aggressive for the site's response times.
		t.log.Warn("poll already in flight, skipping; reduce polling frequency or check_pages")
		return ErrUpdateInFlight
	}
	defer t.inFlight.Store(false)

	err := t.cycle(ctx, forceNotify)
	if err != nil {
		t.recordFailure(err)
	}
	return err
}

func (t *Tracker) cycle(ctx context.Context, forceNotify bool) error {
	t.mu.Lock()
	driver := t.driver
	t.mu.Unlock()

	if driver == nil || !driver.Connected() {
		t.log.Error("browser session disconnected; waiting for supervisor to reconnect")
		return ErrDriverDisconnected
	}

	page, err := t.acquirePage(ctx, driver)
	if err != nil {
		return fmt.Errorf("failed to acquire page: %w", err)
	}

	raw, err := t.fetchSnapshot(ctx, page)
	if err != nil {
		return err
	}

	eval := Evaluate(raw, t.cfg)

	t.mu.Lock()
	t.speedup.Observe(eval.Available)
	previous := t.previous
	primed := t.primed
	t.mu.Unlock()

	if forceNotify {
		t.reportAll(eval.Matches)
	}

	// Baseline cycle has nothing to be new against; compute the diff only
	// afterwards so pre-existing items never count.
	var fresh []Item
	if primed {
		fresh = Diff(previous, eval.Matches)
	}

	switch {
	case !primed:
		t.log.Info("baseline established",
			zap.Int("matches", len(eval.Matches)),
			zap.Int("available", len(eval.Available)))
	case len(fresh) > 0:
		t.reportNew(fresh)
		t.attemptPurchases(ctx, fresh)
	default:
		t.log.Info("no new items found")
	}

	t.mu.Lock()
	t.previous = eval.Matches
	t.primed = true
	t.stats.Cycles++
	t.stats.NewItems += int64(len(fresh))
	t.stats.Matches = len(eval.Matches)
	t.stats.LastCycle = time.Now()
	t.stats.LastError = ""
	t.stats.SpeedupActive = t.speedup.Active()
	t.mu.Unlock()

	return nil
}

// fetchSnapshot walks the listing pages, concatenating parsed batches until
// a page yields no items or the configured page count is exhausted.
func (t *Tracker) fetchSnapshot(ctx context.Context, page browser.Page) ([]RawItem, error) {
	var all []RawItem

	for n := 1; n <= t.cfg.CheckPages; n++ {
		pageURL := buildPageURL(t.cfg.URL, n, t.cfg.SortOrder)
		if err := page.Navigate(ctx, pageURL); err != nil {
			return nil, err
		}

		body, err := browser.BodyHTML(ctx, page)
		if err != nil {
			return nil, err
		}

		clean, err := markup.Sanitize(body)
		if err != nil {
			return nil, err
		}
		doc, err := markup.Parse(clean)
		if err != nil {
			return nil, err
		}
		if len(doc.Children) == 0 {
			if n == 1 {
				// An empty first page is missing data, not an empty
				// category. Completing the cycle would wipe the baseline
				// and re-notify everything once the listing comes back.
				return nil, ErrSnapshotEmpty
			}
			// Ran past the last page; do not assume the configured count
			// exists.
			break
		}

		if verr := markup.Validate(doc); verr != nil {
			t.log.Error("snapshot validation failed",
				zap.Int("page", n),
				zap.String("field", verr.Field),
				zap.String("reason", verr.Reason))
			return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, verr)
		}

		all = append(all, ParseItems(doc, t.baseURL)...)
	}

	return all, nil
}

func (t *Tracker) acquirePage(ctx context.Context, driver browser.Driver) (browser.Page, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.page != nil && !t.page.Closed() {
		return t.page, nil
	}
	page, err := driver.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	t.page = page
	return page, nil
}

func (t *Tracker) reportNew(fresh []Item) {
	lines := make([]string, len(fresh))
	for i, item := range fresh {
		lines[i] = item.MatchText
	}
	t.log.Info("new items found", zap.Int("count", len(fresh)), zap.Strings("items", lines))
	if t.opts.Notify && t.opts.Notifier != nil {
		t.opts.Notifier.Notify(fmt.Sprintf("'%s tracker' - New items found:", t.name), lines...)
	}
}

func (t *Tracker) reportAll(matches []Item) {
	if t.opts.Notifier == nil {
		return
	}
	if len(matches) == 0 {
		t.opts.Notifier.Notify(fmt.Sprintf("'%s tracker' - No matches right now.", t.name))
		return
	}
	lines := make([]string, len(matches))
	for i, item := range matches {
		lines[i] = item.MatchText
	}
	t.opts.Notifier.Notify(fmt.Sprintf("'%s tracker' - Current matches:", t.name), lines...)
}

func (t *Tracker) attemptPurchases(ctx context.Context, fresh []Item) {
	if !t.opts.Purchase || !t.cfg.PurchaseEnabled() || t.opts.Purchaser == nil {
		return
	}
	for _, item := range fresh {
		if !item.PurchaseEligible {
			continue
		}
		t.opts.Purchaser.TryPurchase(ctx, t.cfg, item)
	}
}

func (t *Tracker) recordFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Failures++
	t.stats.LastError = err.Error()
}

// Snapshot returns the tracker's current counters.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.SpeedupActive = t.speedup.Active()
	s.Stopped = t.stopped.Load()
	return s
}

// Name returns the tracker's category name.
func (t *Tracker) Name() string { return t.name }

// buildPageURL appends pagination and sort parameters to the category URL.
// Page one stays unparameterized, matching the site's canonical first page.
func buildPageURL(base string, page int, order string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if order != "" {
		q.Set("order", order)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
