package purchase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"restockbot/pkg/browser"
	"restockbot/pkg/config"
	"restockbot/pkg/logger"
	"restockbot/pkg/tracker"
)

// Site landmarks the checkout flow navigates between.
const (
	cartAddPath      = "/cart/addItem/"
	cartPath         = "/cart"
	orderPath        = "/cart/order"
	confirmationPath = "/cart/orderConfirmation"

	errorBannerSelector   = ".alert-danger"
	warningBannerSelector = ".alert-warning"
	acceptTermsSelector   = ".c-indicator.margin-top-0"
	submitOrderSelector   = "#GTM-carrito-finalizarCompra"
)

// checkout states, logged as the flow advances.
const (
	stateAddingToCart      = "adding_to_cart"
	stateAwaitingCheckout  = "awaiting_checkout_page"
	stateOnCheckoutPage    = "on_checkout_page"
	stateConfirmingPayment = "confirming_payment"
	stateDone              = "done"
	stateFailed            = "failed"
)

// CookieSource exports the browser session's cookies so side-channel HTTP
// requests share its authentication. *browser.Session satisfies this.
type CookieSource interface {
	Cookies(ctx context.Context, urls ...string) ([]*http.Cookie, error)
}

// Stats is a point-in-time snapshot of the orchestrator's counters.
type Stats struct {
	Attempts  int64    `json:"attempts"`
	Successes int64    `json:"successes"`
	Failures  int64    `json:"failures"`
	Cancelled int64    `json:"cancelled"`
	Purchased []string `json:"purchased"`
}

// Orchestrator drives the multi-step checkout flow, one item at a time
// across all trackers. It owns the shared PurchasedSet and the single
// pre-submit cancellation point.
type Orchestrator struct {
	driver    browser.Driver
	cookies   CookieSource
	notifier  Notifier
	purchased *PurchasedSet
	client    *resty.Client
	// allowSame relaxes the already-attempted check globally; a category's
	// purchase_multiple does the same per category.
	allowSame bool

	// onSuccess is invoked with the category name after a completed
	// purchase, letting the supervisor stop single-purchase trackers.
	onSuccess func(category string)

	mu        sync.Mutex
	cancelled atomic.Bool

	statsMu   sync.Mutex
	attempts  int64
	successes int64
	failures  int64
	cancels   int64
}

func NewOrchestrator(driver browser.Driver, cookies CookieSource, notifier Notifier, purchased *PurchasedSet, allowSame bool) *Orchestrator {
	return &Orchestrator{
		driver:    driver,
		cookies:   cookies,
		notifier:  notifier,
		purchased: purchased,
		allowSame: allowSame,
		client:    resty.New().SetTimeout(20 * time.Second),
	}
}

// SetOnSuccess registers the post-purchase hook.
func (o *Orchestrator) SetOnSuccess(fn func(category string)) { o.onSuccess = fn }

// Reconnect hands the orchestrator a rebuilt session.
func (o *Orchestrator) Reconnect(driver browser.Driver, cookies CookieSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.driver = driver
	o.cookies = cookies
}

// Cancel sets the cancellation flag observed right before the final order
// submit. After that point the purchase is no longer cancellable.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
	logger.Warn("purchase cancellation requested")
}

// TryPurchase commits to a purchase attempt for the item and runs the
// checkout flow in the background. Committing marks the item purchased
// before the outcome is known, so no other tracker can start a duplicate
// attempt, unless multiple purchases are explicitly allowed.
func (o *Orchestrator) TryPurchase(ctx context.Context, cat *config.CategoryConfig, item tracker.Item) {
	allowRepeat := o.allowSame || cat.PurchaseMultiple

	if !o.purchased.MarkAttempt(item.ID) && !allowRepeat {
		logger.Debug("skipping purchase, already attempted",
			zap.String("category", cat.Name),
			zap.String("item", item.ID))
		return
	}

	o.notify(fmt.Sprintf("'%s tracker' - Nice price, starting the purchase!", cat.Name), item.MatchText)

	go func() {
		err := o.Purchase(ctx, item)
		o.report(cat, item, err)
	}()
}

// Purchase runs the checkout state machine for one item. Attempts are
// serialized; a second eligible item waits for the current flow to finish.
func (o *Orchestrator) Purchase(ctx context.Context, item tracker.Item) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.cancelled.Store(false)
	attemptID := uuid.New().String()
	log := logger.With(zap.String("attempt", attemptID), zap.String("item", item.ID))

	o.statsMu.Lock()
	o.attempts++
	o.statsMu.Unlock()

	err := o.run(ctx, log, item)

	o.statsMu.Lock()
	switch {
	case err == nil:
		o.successes++
	case isCancel(err):
		o.cancels++
	default:
		o.failures++
	}
	o.statsMu.Unlock()

	if err != nil {
		log.Error("purchase failed", zap.String("state", stateFailed), zap.Error(err))
		return err
	}
	log.Info("purchase completed", zap.String("state", stateDone))
	return nil
}

func (o *Orchestrator) run(ctx context.Context, log *zap.Logger, item tracker.Item) error {
	page, err := o.driver.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open purchase page: %w", err)
	}
	defer page.Close()

	baseURL := tracker.BaseURL(item.DetailLink)

	// Step 1: resolve a direct add-to-cart endpoint.
	log.Info("purchase step", zap.String("state", stateAddingToCart))
	cartLink := item.PurchaseLink
	if cartLink == "" {
		cartLink, err = o.resolveCartLink(ctx, page, item, baseURL)
		if err != nil {
			return err
		}
	}

	// Step 2: add to cart; an error banner here is fatal for the attempt.
	if err := page.Navigate(ctx, cartLink); err != nil {
		return fmt.Errorf("%w: %v", ErrCartRejected, err)
	}
	if banner := o.readBanner(ctx, page, errorBannerSelector); banner != "" {
		return fmt.Errorf("%w: %s", ErrCartRejected, banner)
	}

	// Step 3: reach the checkout page. A warning banner (stock cap reduced
	// the quantity) gets one automatic re-navigation, nothing more.
	log.Info("purchase step", zap.String("state", stateAwaitingCheckout))
	orderURL := baseURL + orderPath
	if err := page.Navigate(ctx, orderURL); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if warning := o.readBanner(ctx, page, warningBannerSelector); warning != "" {
		log.Warn("checkout warning", zap.String("banner", warning))
		o.notify("Checkout warning:", warning)
		if err := page.Navigate(ctx, orderURL); err != nil {
			return fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
		}
	}
	loc, err := page.Location(ctx)
	if err != nil || !strings.Contains(loc, orderPath) {
		return fmt.Errorf("%w: landed on %q", ErrCheckoutUnavailable, loc)
	}

	// Step 4: page-level error banner on checkout is fatal.
	log.Info("purchase step", zap.String("state", stateOnCheckoutPage))
	if banner := o.readBanner(ctx, page, errorBannerSelector); banner != "" {
		return fmt.Errorf("%w: %s", ErrCheckoutRejected, banner)
	}

	// Step 5: independent quick cart check, concurrent with the
	// confirmation steps below. It surfaces a purchase preview and the
	// /cancel window; its own failures never abort the purchase.
	go o.quickCartCheck(ctx, log, baseURL)

	// Step 6: accept terms, then submit. The cancellation flag is checked
	// right before the submit; this is the last cancellable point.
	log.Info("purchase step", zap.String("state", stateConfirmingPayment))
	if err := page.Click(ctx, acceptTermsSelector); err != nil {
		return fmt.Errorf("%w: terms checkbox: %v", ErrCheckoutRejected, err)
	}
	if err := sleepRandom(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return err
	}
	if o.cancelled.Load() {
		return ErrManuallyStopped
	}
	if err := page.Click(ctx, submitOrderSelector); err != nil {
		return fmt.Errorf("%w: submit button: %v", ErrCheckoutRejected, err)
	}

	// Step 7: judge the outcome by where the browser ended up.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(3 * time.Second):
	}
	loc, err = page.Location(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderNotConfirmed, err)
	}
	switch {
	case strings.Contains(loc, confirmationPath):
		return nil
	case strings.Contains(loc, "tpv") || strings.Contains(loc, "payment"):
		return fmt.Errorf("%w: landed on %q", ErrPaymentConfirmationPending, loc)
	default:
		return fmt.Errorf("%w: landed on %q", ErrOrderNotConfirmed, loc)
	}
}

// resolveCartLink derives the product id from the detail page when the
// listing did not expose a direct cart-add endpoint.
func (o *Orchestrator) resolveCartLink(ctx context.Context, page browser.Page, item tracker.Item, baseURL string) (string, error) {
	if item.DetailLink == "" {
		return "", ErrPurchaseLinkUnresolved
	}
	if err := page.Navigate(ctx, item.DetailLink); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPurchaseLinkUnresolved, err)
	}

	var id string
	expr := `(() => {
		const el = document.querySelector('#precio-main') || document.querySelector('[data-id]');
		return el ? (el.getAttribute('data-id') || '') : '';
	})()`
	if err := page.Evaluate(ctx, expr, &id); err != nil || id == "" {
		return "", ErrPurchaseLinkUnresolved
	}
	return baseURL + cartAddPath + id, nil
}

// readBanner returns the trimmed text of the first element matching the
// selector, or "" when absent. Read errors count as no banner: the flow's
// location checks catch a page that actually broke.
func (o *Orchestrator) readBanner(ctx context.Context, page browser.Page, selector string) string {
	var text string
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.textContent.trim() : '';
	})()`, selector)
	if err := page.Evaluate(ctx, expr, &text); err != nil {
		return ""
	}
	return text
}

// report classifies the attempt outcome for the operator, per the failure
// taxonomy: manual stop and pending-payment are called out distinctly from
// hard failures.
func (o *Orchestrator) report(cat *config.CategoryConfig, item tracker.Item, err error) {
	switch {
	case err == nil:
		o.notify(fmt.Sprintf("'%s tracker' - PURCHASED!", cat.Name), item.MatchText)
		if !cat.PurchaseMultiple && o.onSuccess != nil {
			o.onSuccess(cat.Name)
		}
	case isCancel(err):
		o.notify(fmt.Sprintf("'%s tracker' - Purchase manually stopped.", cat.Name), item.MatchText)
	case isPendingPayment(err):
		o.notify(
			fmt.Sprintf("'%s tracker' - Order submitted but payment may need external confirmation (bank app). Check your order history.", cat.Name),
			item.MatchText)
	default:
		o.notify(
			fmt.Sprintf("'%s tracker' - Purchase failed, check your order history manually.", cat.Name),
			item.MatchText, err.Error())
	}
}

func (o *Orchestrator) notify(title string, lines ...string) {
	if o.notifier != nil {
		o.notifier.Notify(title, lines...)
	}
}

// Snapshot returns the orchestrator counters plus the purchased ids.
func (o *Orchestrator) Snapshot() Stats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return Stats{
		Attempts:  o.attempts,
		Successes: o.successes,
		Failures:  o.failures,
		Cancelled: o.cancels,
		Purchased: o.purchased.IDs(),
	}
}

func isCancel(err error) bool { return errors.Is(err, ErrManuallyStopped) }

func isPendingPayment(err error) bool { return errors.Is(err, ErrPaymentConfirmationPending) }
