package tracker

import (
	"context"
	"sync"

	"restockbot/pkg/browser"
)

// Registry holds every live tracker. It is an explicit injected service
// rather than package state, so the supervisor, the status API and the
// summary scheduler all see the same set.
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*Tracker)}
}

// Add registers a tracker under its category name, replacing any previous
// entry with the same name.
func (r *Registry) Add(t *Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.trackers[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.trackers[t.Name()] = t
}

// Get returns the tracker registered under name, or nil.
func (r *Registry) Get(name string) *Tracker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trackers[name]
}

// All returns the trackers in registration order.
func (r *Registry) All() []*Tracker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tracker, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.trackers[name])
	}
	return out
}

// RefreshAll forces an immediate full report from every tracker. Each
// update runs in its own goroutine; trackers with a cycle already in flight
// skip, which is the intended behavior.
func (r *Registry) RefreshAll(ctx context.Context) {
	for _, t := range r.All() {
		go func(t *Tracker) {
			_ = t.Update(ctx, true)
		}(t)
	}
}

// StopAll stops every tracker cooperatively.
func (r *Registry) StopAll() {
	for _, t := range r.All() {
		t.Stop()
	}
}

// ReconnectAll pushes a rebuilt driver to every tracker.
func (r *Registry) ReconnectAll(driver browser.Driver) {
	for _, t := range r.All() {
		t.Reconnect(driver)
	}
}

// Snapshot returns the per-tracker stats in registration order.
func (r *Registry) Snapshot() []Stats {
	trackers := r.All()
	out := make([]Stats, 0, len(trackers))
	for _, t := range trackers {
		out = append(out, t.Snapshot())
	}
	return out
}
