// Package tracker implements the polling, diffing and eligibility engine:
// one Tracker per watched category, each running an independent randomized
// polling loop that turns page snapshots into new-item events and purchase
// attempts.
package tracker

// Item is one normalized listing entry for a single poll cycle.
type Item struct {
	// ID is the stable identity used for diffing, taken from the listing's
	// id attribute or derived from the detail link.
	ID         string
	NameTokens []string
	Price      float64
	DetailLink string
	// PurchaseLink is a direct add-to-cart endpoint when the listing
	// exposes one; empty means the purchase flow must resolve it from the
	// detail page.
	PurchaseLink string
	// MatchText is the human-readable summary used in notifications.
	MatchText string
	// PurchaseEligible reflects category and rule level gating only; the
	// already-purchased check happens at attempt time.
	PurchaseEligible bool
}

// IDSet is a set of item ids.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Add(id string) { s[id] = struct{}{} }

func (s IDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Equal reports whether both sets hold exactly the same ids.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}
