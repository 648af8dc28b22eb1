package tracker

import (
	"reflect"
	"testing"

	"restockbot/pkg/config"
)

func boolPtr(b bool) *bool { return &b }

func gpuCategory() *config.CategoryConfig {
	return &config.CategoryConfig{
		Name:     "graphics cards",
		URL:      "https://www.pccomponentes.com/tarjetas-graficas",
		MaxPrice: 700,
		Articles: []*config.ItemRule{
			{Model: []string{"3060"}, MaxPrice: 500},
			{Model: []string{"3070"}, NoPurchase: true},
		},
	}
}

func rawGPU(id string, price float64, tokens ...string) RawItem {
	return RawItem{
		ID:         id,
		NameTokens: tokens,
		Price:      price,
		DetailLink: "https://www.pccomponentes.com/" + id,
	}
}

func TestEvaluateRuleMatching(t *testing.T) {
	cat := gpuCategory()
	items := []RawItem{
		rawGPU("a", 499.99, "msi", "geforce", "rtx", "3060", "ventus"),
		rawGPU("b", 500, "gigabyte", "rtx", "3060", "gaming"),
		rawGPU("c", 650, "asus", "rtx", "3070", "tuf"),
		rawGPU("d", 400, "amd", "radeon", "rx", "6700"),
	}

	eval := Evaluate(items, cat)

	if len(eval.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(eval.Matches), eval.Matches)
	}
	if eval.Matches[0].ID != "a" || eval.Matches[1].ID != "c" {
		t.Errorf("matched ids = %s, %s; want a, c", eval.Matches[0].ID, eval.Matches[1].ID)
	}
	if !eval.Matches[0].PurchaseEligible {
		t.Error("item a should be purchase eligible")
	}
	if eval.Matches[1].PurchaseEligible {
		t.Error("item c matched a no-purchase rule, must not be eligible")
	}
	// Everything in stock lands in Available, matched or not.
	for _, id := range []string{"a", "b", "c", "d"} {
		if !eval.Available.Contains(id) {
			t.Errorf("available set lost id %s", id)
		}
	}
}

func TestEvaluatePriceCeilingsAreExclusive(t *testing.T) {
	cat := gpuCategory()

	// Exactly at the rule ceiling: rejected.
	eval := Evaluate([]RawItem{rawGPU("x", 500, "rtx", "3060")}, cat)
	if len(eval.Matches) != 0 {
		t.Errorf("price equal to rule ceiling must not match, got %+v", eval.Matches)
	}

	// One cent under: accepted.
	eval = Evaluate([]RawItem{rawGPU("x", 499.99, "rtx", "3060")}, cat)
	if len(eval.Matches) != 1 {
		t.Errorf("price under ceiling should match, got %+v", eval.Matches)
	}

	// Exactly at the category ceiling: rejected before rules run.
	eval = Evaluate([]RawItem{rawGPU("y", 700, "rtx", "3070")}, cat)
	if len(eval.Matches) != 0 {
		t.Errorf("price equal to category ceiling must not match, got %+v", eval.Matches)
	}
}

func TestEvaluateTokenSemantics(t *testing.T) {
	cat := &config.CategoryConfig{
		Name: "cards",
		Articles: []*config.ItemRule{
			{Model: []string{"rtx", "3060"}},
		},
	}

	// All model tokens must appear as whole tokens.
	eval := Evaluate([]RawItem{rawGPU("a", 100, "rtx", "3060ti")}, cat)
	if len(eval.Matches) != 0 {
		t.Error("3060ti must not satisfy the 3060 token")
	}

	eval = Evaluate([]RawItem{rawGPU("a", 100, "msi", "rtx", "3060", "oc")}, cat)
	if len(eval.Matches) != 1 {
		t.Error("extra tokens around the model tokens should still match")
	}
}

func TestEvaluateExcludesFromCategoryAndRule(t *testing.T) {
	cat := &config.CategoryConfig{
		Name:    "cards",
		Exclude: []string{"refurbished"},
		Articles: []*config.ItemRule{
			{Model: []string{"3060"}, Exclude: []string{"mini"}},
		},
	}

	for _, tokens := range [][]string{
		{"rtx", "3060", "refurbished"},
		{"rtx", "3060", "mini"},
	} {
		eval := Evaluate([]RawItem{rawGPU("a", 100, tokens...)}, cat)
		if len(eval.Matches) != 0 {
			t.Errorf("tokens %v should be excluded", tokens)
		}
	}
}

func TestEvaluateFirstRuleWins(t *testing.T) {
	cat := &config.CategoryConfig{
		Name: "cards",
		Articles: []*config.ItemRule{
			{Model: []string{"3060"}, NoPurchase: true},
			{Model: []string{"3060"}},
		},
	}

	eval := Evaluate([]RawItem{rawGPU("a", 100, "rtx", "3060")}, cat)
	if len(eval.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(eval.Matches))
	}
	if eval.Matches[0].PurchaseEligible {
		t.Error("first matching rule disables purchase; later rules must not override it")
	}
}

func TestEvaluateCategoryPurchaseSwitch(t *testing.T) {
	cat := gpuCategory()
	cat.Purchase = boolPtr(false)

	eval := Evaluate([]RawItem{rawGPU("a", 400, "rtx", "3060")}, cat)
	if len(eval.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(eval.Matches))
	}
	if eval.Matches[0].PurchaseEligible {
		t.Error("category purchase=false must clear eligibility")
	}
}

func TestEvaluateSkipsOutOfStock(t *testing.T) {
	cat := gpuCategory()
	raw := rawGPU("a", 400, "rtx", "3060")
	raw.OutOfStock = true

	eval := Evaluate([]RawItem{raw}, cat)
	if len(eval.Matches) != 0 {
		t.Error("out-of-stock item must not match")
	}
	if eval.Available.Contains("a") {
		t.Error("out-of-stock item must not count as available")
	}
}

func TestMatchTextFormat(t *testing.T) {
	raw := RawItem{
		NameTokens: []string{"msi", "rtx", "3060"},
		Price:      389.9,
		DetailLink: "https://www.pccomponentes.com/msi-rtx-3060",
	}
	want := "*389.9 EUR*\n[msi rtx 3060](https://www.pccomponentes.com/msi-rtx-3060)"
	if got := matchText(raw); got != want {
		t.Errorf("matchText = %q, want %q", got, want)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	cat := gpuCategory()
	items := []RawItem{rawGPU("a", 400, "rtx", "3060")}

	first := Evaluate(items, cat)
	second := Evaluate(items, cat)
	if !reflect.DeepEqual(first.Matches, second.Matches) {
		t.Error("repeated evaluation of the same input diverged")
	}
}
