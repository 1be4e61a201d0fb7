package addons

import (
	"context"
	"sort"
)

// EventType classifies registry events.
type EventType int

const (
	EventAdded EventType = iota
	EventRemoved
	EventStatusChanged
)

func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "Added"
	case EventRemoved:
		return "Removed"
	case EventStatusChanged:
		return "StatusChanged"
	default:
		return "Unknown"
	}
}

// Event describes a registry mutation. Old is meaningful for removals and status
// changes only.
type Event struct {
	Type  EventType
	Addon *Addon
	Old   Status
	New   Status
}

// Listener observes registry mutations. Listeners never run under the registry lock:
// a change made with a context that already holds the lock is delivered when the
// caller's outermost PerformLocked returns. They run on the goroutine that released
// the lock, so they may read the registry with any context.
type Listener interface {
	OnAddonEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnAddonEvent(e Event) { f(e) }

// AddListener registers l and returns a function that unregisters it.
func (r *Registry) AddListener(l Listener) (remove func()) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	return func() {
		r.listenersMu.Lock()
		defer r.listenersMu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *Registry) notifyAfterUnlock(ctx context.Context, e Event) {
	r.lock.AfterUnlock(ctx, func() { r.notify(e) })
}

func (r *Registry) notify(e Event) {
	r.listenersMu.Lock()
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	ls := make([]Listener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		ls = append(ls, r.listeners[id])
	}
	r.listenersMu.Unlock()

	for _, l := range ls {
		l.OnAddonEvent(e)
	}
}
