package tracker

import (
	"strconv"
	"strings"

	"restockbot/pkg/config"
)

// Evaluation is the result of running a snapshot through the category rules.
type Evaluation struct {
	// Matches are the rule-qualified items, in snapshot order.
	Matches []Item
	// Available holds every in-stock id regardless of rules; stock churn
	// outside the tracked rule set still matters for speedup.
	Available IDSet
}

// Evaluate runs each raw item through the category's rule set. Evaluation is
// pure: same input, same output, no state.
//
// Precedence: the out-of-stock sentinel rejects first, then the category
// price ceiling, then the rules in configured order. The first matching rule
// decides inclusion and purchase gating; an item matching no rule is dropped.
func Evaluate(items []RawItem, cat *config.CategoryConfig) Evaluation {
	eval := Evaluation{Available: NewIDSet()}

	for _, raw := range items {
		if raw.OutOfStock {
			continue
		}
		eval.Available.Add(raw.ID)

		if cat.MaxPrice > 0 && raw.Price >= cat.MaxPrice {
			continue
		}

		rule := matchRule(raw, cat)
		if rule == nil {
			continue
		}

		eval.Matches = append(eval.Matches, Item{
			ID:               raw.ID,
			NameTokens:       raw.NameTokens,
			Price:            raw.Price,
			DetailLink:       raw.DetailLink,
			PurchaseLink:     raw.PurchaseLink,
			MatchText:        matchText(raw),
			PurchaseEligible: cat.PurchaseEnabled() && !rule.NoPurchase,
		})
	}

	return eval
}

// matchRule returns the first rule the item satisfies, or nil.
func matchRule(raw RawItem, cat *config.CategoryConfig) *config.ItemRule {
	for _, rule := range cat.Articles {
		if rule.MaxPrice > 0 && raw.Price >= rule.MaxPrice {
			continue
		}
		if !hasAllTokens(raw.NameTokens, rule.Model) {
			continue
		}
		if hasAnyToken(raw.NameTokens, cat.Exclude) || hasAnyToken(raw.NameTokens, rule.Exclude) {
			continue
		}
		return rule
	}
	return nil
}

func hasAllTokens(name []string, required []string) bool {
	for _, tok := range required {
		if !containsToken(name, tok) {
			return false
		}
	}
	return true
}

func hasAnyToken(name []string, excluded []string) bool {
	for _, tok := range excluded {
		if containsToken(name, tok) {
			return true
		}
	}
	return false
}

func containsToken(name []string, tok string) bool {
	tok = strings.ToLower(tok)
	for _, n := range name {
		if n == tok {
			return true
		}
	}
	return false
}

// matchText builds the notification summary: a bold price line followed by
// the item name linking to its detail page.
func matchText(raw RawItem) string {
	price := strconv.FormatFloat(raw.Price, 'f', -1, 64)
	return "*" + price + " EUR*\n[" + strings.Join(raw.NameTokens, " ") + "](" + raw.DetailLink + ")"
}
