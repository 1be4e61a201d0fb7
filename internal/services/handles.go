package services

import (
	"reflect"
	"sync"

	"github.com/bayleafwalker/kiln/internal/addons"
)

// handles records which exported instance produced each value handed out, so Release
// can find it again. Entries exist only between hand-out and release; the table never
// holds a value the consumer has already given back.
//
// Values are keyed by Go equality, which is identity for pointers and channels.
// Values of non-comparable types are not tracked.
type handles struct {
	mu      sync.Mutex
	entries map[any][]addons.ExportedInstance
}

func newHandles() *handles {
	return &handles{entries: make(map[any][]addons.ExportedInstance)}
}

func trackable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

func (h *handles) checkout(v any, source addons.ExportedInstance) {
	if !trackable(v) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[v] = append(h.entries[v], source)
}

// checkin removes the most recent hand-out of v and returns its source.
func (h *handles) checkin(v any) (addons.ExportedInstance, bool) {
	if !trackable(v) {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	sources, ok := h.entries[v]
	if !ok {
		return nil, false
	}
	last := sources[len(sources)-1]
	if len(sources) == 1 {
		delete(h.entries, v)
	} else {
		h.entries[v] = sources[:len(sources)-1]
	}
	return last, true
}

func (h *handles) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.entries {
		n += len(s)
	}
	return n
}
