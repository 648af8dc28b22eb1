package tracker

import (
	"context"

	"restockbot/pkg/config"
)

// Notifier is the outbound reporting surface the tracker fires results at.
type Notifier interface {
	Notify(title string, lines ...string)
}

// Purchaser receives purchase-eligible new items. Implementations serialize
// attempts and own the shared purchased-set; TryPurchase must not block the
// calling poll cycle.
type Purchaser interface {
	TryPurchase(ctx context.Context, cat *config.CategoryConfig, item Item)
}
