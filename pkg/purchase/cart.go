package purchase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// CartSummary is what the side-channel cart fetch extracted.
type CartSummary struct {
	Name      string
	Quantity  int
	UnitPrice float64
	Total     float64
}

// Consistent reports whether the totals add up. A mismatch usually means
// the site capped the quantity after the item was added.
func (s *CartSummary) Consistent() bool {
	if s.Quantity <= 0 || s.UnitPrice <= 0 {
		return false
	}
	return math.Abs(s.Total-s.UnitPrice*float64(s.Quantity)) < 0.01
}

// quickCartCheck fetches the cart over plain HTTP reusing the browser
// session's cookies and pushes a purchase preview to the operator. It runs
// alongside the checkout confirmation steps and never aborts them; the
// preview opens the window for a manual /cancel before the final submit.
func (o *Orchestrator) quickCartCheck(ctx context.Context, log *zap.Logger, baseURL string) {
	cartURL := baseURL + cartPath

	req := o.client.R().SetContext(ctx)
	if o.cookies != nil {
		cookies, err := o.cookies.Cookies(ctx, cartURL)
		if err != nil {
			log.Warn("quick cart check: cookie export failed", zap.Error(err))
		} else {
			req.SetCookies(cookies)
		}
	}

	resp, err := req.Get(cartURL)
	if err != nil {
		log.Warn("quick cart check failed", zap.Error(err))
		return
	}
	if resp.StatusCode() != 200 {
		log.Warn("quick cart check: unexpected status", zap.Int("status", resp.StatusCode()))
		return
	}

	summary, err := parseCartSummary(resp.String())
	if err != nil {
		log.Warn("quick cart check: unreadable cart page", zap.Error(err))
		return
	}

	log.Info("cart contents",
		zap.String("name", summary.Name),
		zap.Int("quantity", summary.Quantity),
		zap.Float64("unit_price", summary.UnitPrice),
		zap.Float64("total", summary.Total))

	preview := fmt.Sprintf("%d x %s at %s EUR (total %s EUR)",
		summary.Quantity, summary.Name,
		strconv.FormatFloat(summary.UnitPrice, 'f', -1, 64),
		strconv.FormatFloat(summary.Total, 'f', -1, 64))
	if !summary.Consistent() {
		o.notify("Purchase preview (cart totals look off, verify manually):", preview)
		return
	}
	o.notify("Purchase preview, send /cancel to abort before submit:", preview)
}

// parseCartSummary extracts name, quantity and prices from the cart page.
// The cart reuses the listing's article markup for its line items.
func parseCartSummary(pageHTML string) (*CartSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableCart, err)
	}

	line := doc.Find("article[data-price]").First()
	if line.Length() == 0 {
		return nil, ErrUnreadableCart
	}

	summary := &CartSummary{Quantity: 1}
	summary.Name = strings.TrimSpace(line.AttrOr("data-name", ""))
	summary.UnitPrice = parsePrice(line.AttrOr("data-price", ""))

	if qty, ok := line.Find("input[name='qty']").Attr("value"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(qty)); err == nil && n > 0 {
			summary.Quantity = n
		}
	}

	if total, ok := line.Attr("data-total"); ok {
		summary.Total = parsePrice(total)
	} else {
		summary.Total = parsePrice(doc.Find("#total-price").First().Text())
	}
	if summary.Total == 0 {
		summary.Total = summary.UnitPrice * float64(summary.Quantity)
	}

	if summary.Name == "" || summary.UnitPrice <= 0 {
		return nil, ErrUnreadableCart
	}
	return summary, nil
}

// parsePrice pulls a float out of a price string, tolerating currency
// symbols and a comma decimal separator.
func parsePrice(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}
