package tracker

// Diff returns the items of current whose id is absent from previous, in
// current's order. Identity is the id alone: an id seen before with a
// different price is not new.
func Diff(previous, current []Item) []Item {
	seen := make(IDSet, len(previous))
	for _, item := range previous {
		seen.Add(item.ID)
	}

	var fresh []Item
	for _, item := range current {
		if !seen.Contains(item.ID) {
			fresh = append(fresh, item)
		}
	}
	return fresh
}
