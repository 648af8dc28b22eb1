package purchase

import "sync"

// PurchasedSet records every item id a purchase was committed for, shared
// across all trackers. Insertion happens when an attempt is committed, not
// when it succeeds, so two trackers can never race into buying the same item
// twice.
//
// The set lives in process memory only and resets on restart. That is the
// intended lifecycle (a restart is a fresh session); anyone changing that
// should weigh the duplicate-purchase risk after a crash documented in
// DESIGN.md.
type PurchasedSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewPurchasedSet() *PurchasedSet {
	return &PurchasedSet{ids: make(map[string]struct{})}
}

// MarkAttempt records the id and reports whether it was newly added. A
// false return means a purchase for this item was already committed.
func (s *PurchasedSet) MarkAttempt(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ids[id]; exists {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Contains reports whether a purchase was committed for the id.
func (s *PurchasedSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of committed attempts.
func (s *PurchasedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the recorded ids, in no particular order.
func (s *PurchasedSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
