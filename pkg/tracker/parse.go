package tracker

import (
	"net/url"
	"strings"

	"restockbot/pkg/markup"
)

// outOfStockSentinel is the phrase the listing places inside an entry that
// cannot be ordered. Matched case-insensitively against the entry's text.
const outOfStockSentinel = "sin fecha de entrada"

// cartAddPath is the shop's direct add-to-cart endpoint, keyed by product id.
const cartAddPath = "/cart/addItem/"

// RawItem is one listing entry as extracted from the structured document,
// before any rule evaluation.
type RawItem struct {
	ID         string
	NameTokens []string
	Price      float64
	DetailLink string
	// PurchaseLink is set when the listing carried an explicit id; derived
	// ids leave it empty for the purchase flow to resolve.
	PurchaseLink string
	OutOfStock   bool
}

// ParseItems extracts raw item records from a validated document. Entries
// with no usable id are skipped; everything else is preserved in document
// order.
func ParseItems(doc *markup.Document, baseURL string) []RawItem {
	var items []RawItem
	for _, article := range doc.Elements("article") {
		price, ok := article.AttrFloat("data-price")
		if !ok {
			continue
		}

		tokens := article.AttrWords("data-name")
		for i, t := range tokens {
			tokens[i] = strings.ToLower(t)
		}

		var detail string
		if a := article.FindChild("a"); a != nil {
			detail = joinURL(baseURL, a.AttrString("href"))
		}

		item := RawItem{
			NameTokens: tokens,
			Price:      price,
			DetailLink: detail,
			OutOfStock: strings.Contains(strings.ToLower(article.InnerText()), outOfStockSentinel),
		}

		if id := article.AttrString("data-id"); id != "" {
			item.ID = id
			item.PurchaseLink = joinURL(baseURL, cartAddPath+id)
		} else if detail != "" {
			item.ID = detail
		} else {
			continue
		}

		items = append(items, item)
	}
	return items
}

// BaseURL reduces a category URL to its scheme://host root, used to absolute
// the relative detail links the listing carries.
func BaseURL(categoryURL string) string {
	u, err := url.Parse(categoryURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func joinURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}
