package config

// Polling defaults applied to categories that leave the bounds unset.
const (
	DefaultMinUpdateSeconds = 20
	DefaultMaxUpdateSeconds = 40
	DefaultCheckPages       = 2
)

// ItemRule is one trackable product definition inside a category. All model
// tokens must appear in the item name for the rule to match; any exclude
// token present disqualifies the item.
type ItemRule struct {
	Model []string `json:"model" yaml:"model"`
	// MaxPrice is a strictly exclusive ceiling; zero means unset.
	MaxPrice float64 `json:"max_price,omitempty" yaml:"max_price,omitempty"`
	// NoPurchase keeps the rule notifying but never buying.
	NoPurchase bool     `json:"no_purchase,omitempty" yaml:"no_purchase,omitempty"`
	Exclude    []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// CategoryConfig is one watched listing.
type CategoryConfig struct {
	Name     string      `json:"name" yaml:"name"`
	URL      string      `json:"url" yaml:"url"`
	Articles []*ItemRule `json:"articles" yaml:"articles"`

	// MaxPrice is the category-wide exclusive ceiling; zero means unset.
	MaxPrice float64  `json:"max_price,omitempty" yaml:"max_price,omitempty"`
	Exclude  []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	MinUpdateSeconds float64 `json:"min_update_seconds" yaml:"min_update_seconds"`
	MaxUpdateSeconds float64 `json:"max_update_seconds" yaml:"max_update_seconds"`
	CheckPages       int     `json:"check_pages" yaml:"check_pages"`
	SortOrder        string  `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`

	// Purchase defaults to true when omitted, matching the notify-plus-buy
	// nature of the tool; the bot-level purchase switch still gates it.
	Purchase         *bool `json:"purchase,omitempty" yaml:"purchase,omitempty"`
	PurchaseMultiple bool  `json:"purchase_multiple,omitempty" yaml:"purchase_multiple,omitempty"`
	AutoSpeedup      bool  `json:"auto_speedup,omitempty" yaml:"auto_speedup,omitempty"`
}

// PurchaseEnabled reports whether this category may trigger purchases.
func (c *CategoryConfig) PurchaseEnabled() bool {
	return c.Purchase == nil || *c.Purchase
}

// Normalize fills unset polling bounds and page counts with defaults.
func (c *CategoryConfig) Normalize() {
	if c.MinUpdateSeconds <= 0 {
		c.MinUpdateSeconds = DefaultMinUpdateSeconds
	}
	if c.MaxUpdateSeconds <= 0 {
		c.MaxUpdateSeconds = DefaultMaxUpdateSeconds
	}
	if c.MaxUpdateSeconds < c.MinUpdateSeconds {
		c.MaxUpdateSeconds = c.MinUpdateSeconds
	}
	if c.CheckPages <= 0 {
		c.CheckPages = DefaultCheckPages
	}
}
