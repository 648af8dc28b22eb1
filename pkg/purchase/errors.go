package purchase

import "errors"

// Purchase and login error definitions using sentinel errors pattern
var (
	// ErrMissingCredentials indicates no shop account is configured; fatal
	// for the whole system since purchasing cannot proceed
	ErrMissingCredentials = errors.New("shop credentials not configured")

	// ErrLoginFailed indicates the login attempt ceiling was exhausted
	ErrLoginFailed = errors.New("login failed")

	// ErrPurchaseLinkUnresolved indicates no add-to-cart endpoint could be
	// derived for the item
	ErrPurchaseLinkUnresolved = errors.New("could not resolve add-to-cart link")

	// ErrCartRejected indicates the shop refused the add-to-cart step
	ErrCartRejected = errors.New("cart rejected the item")

	// ErrCheckoutUnavailable indicates the browser never landed on the
	// checkout page
	ErrCheckoutUnavailable = errors.New("checkout page unavailable")

	// ErrCheckoutRejected indicates an error banner on the checkout page
	ErrCheckoutRejected = errors.New("checkout rejected the order")

	// ErrOrderNotConfirmed indicates the post-submit location did not match
	// the order confirmation path
	ErrOrderNotConfirmed = errors.New("order confirmation not reached")

	// ErrPaymentConfirmationPending indicates the order likely needs an
	// out-of-band payment confirmation (bank app), distinct from a hard
	// failure
	ErrPaymentConfirmationPending = errors.New("payment may require external confirmation")

	// ErrManuallyStopped indicates the operator cancelled the purchase at
	// the pre-submit cancellation point
	ErrManuallyStopped = errors.New("purchase manually stopped")

	// ErrUnreadableCart indicates the side-channel cart fetch returned a
	// page with no recognizable line item.
	ErrUnreadableCart = errors.New("cart page unreadable")

	// ErrAlreadyAttempted indicates the item is in the purchased set and
	// multiple purchases are not allowed
	ErrAlreadyAttempted = errors.New("item already attempted this session")
)
