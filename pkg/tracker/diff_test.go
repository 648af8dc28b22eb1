package tracker

import "testing"

func item(id string, price float64) Item {
	return Item{ID: id, Price: price}
}

func TestDiffFindsNewIDs(t *testing.T) {
	previous := []Item{item("1", 100), item("2", 200)}
	current := []Item{item("2", 200), item("3", 300), item("1", 100)}

	fresh := Diff(previous, current)
	if len(fresh) != 1 || fresh[0].ID != "3" {
		t.Fatalf("Diff = %+v, want just id 3", fresh)
	}
}

func TestDiffIgnoresPriceChanges(t *testing.T) {
	previous := []Item{item("1", 500)}
	current := []Item{item("1", 450)}

	if fresh := Diff(previous, current); len(fresh) != 0 {
		t.Errorf("price drop reported as new item: %+v", fresh)
	}
}

func TestDiffPreservesCurrentOrder(t *testing.T) {
	previous := []Item{item("keep", 1)}
	current := []Item{item("b", 2), item("keep", 1), item("a", 3)}

	fresh := Diff(previous, current)
	if len(fresh) != 2 || fresh[0].ID != "b" || fresh[1].ID != "a" {
		t.Errorf("Diff order = %+v, want b then a", fresh)
	}
}

func TestDiffAgainstEmptyPrevious(t *testing.T) {
	current := []Item{item("1", 100), item("2", 200)}
	if fresh := Diff(nil, current); len(fresh) != 2 {
		t.Errorf("everything should be new against an empty previous, got %+v", fresh)
	}
}

func TestDiffDisappearedItemsAreSilent(t *testing.T) {
	previous := []Item{item("1", 100), item("2", 200)}
	current := []Item{item("1", 100)}

	if fresh := Diff(previous, current); len(fresh) != 0 {
		t.Errorf("removed items must not appear in the diff: %+v", fresh)
	}
}
