// Package lock provides the read/write coordination point that guards the addon
// registry and every view derived from it.
//
// Reentrancy is carried by the context: fn receives a context that records the mode
// already held, and nested PerformLocked calls made with that context run without
// acquiring the lock again.
package lock

import (
	"context"
	"errors"
	"sync"
)

// Mode selects shared or exclusive access.
type Mode int

const (
	// Read is shared among any number of holders.
	Read Mode = iota
	// Write is exclusive.
	Write
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// ErrLockUpgrade is returned when a read holder asks for the write lock.
var ErrLockUpgrade = errors.New("lock: cannot upgrade read lock to write lock")

// Manager is a reentrant read/write lock.
type Manager struct {
	mu sync.RWMutex
}

// New returns an unlocked Manager.
func New() *Manager {
	return &Manager{}
}

type heldKey struct{ m *Manager }

// holder is the lock ownership carried by a context.
type holder struct {
	mode Mode

	mu    sync.Mutex
	after []func()
	done  bool
}

func (m *Manager) holder(ctx context.Context) *holder {
	h, _ := ctx.Value(heldKey{m}).(*holder)
	return h
}

// Held returns the mode held by ctx on m, if any.
func (m *Manager) Held(ctx context.Context) (Mode, bool) {
	if h := m.holder(ctx); h != nil {
		return h.mode, true
	}
	return 0, false
}

// PerformLocked runs fn while holding the lock in the given mode.
func (m *Manager) PerformLocked(ctx context.Context, mode Mode, fn func(ctx context.Context) error) error {
	if h := m.holder(ctx); h != nil {
		if h.mode == Read && mode == Write {
			return ErrLockUpgrade
		}
		return fn(ctx)
	}

	if mode != Write {
		mode = Read
	}
	h := &holder{mode: mode}
	err := m.run(ctx, h, fn)
	for _, f := range h.finish() {
		f()
	}
	return err
}

func (m *Manager) run(ctx context.Context, h *holder, fn func(ctx context.Context) error) error {
	if h.mode == Write {
		m.mu.Lock()
		defer m.mu.Unlock()
	} else {
		m.mu.RLock()
		defer m.mu.RUnlock()
	}
	return fn(context.WithValue(ctx, heldKey{m}, h))
}

// AfterUnlock runs fn once ctx no longer holds m. Without a held lock fn runs at once;
// otherwise it runs, in registration order, after the outermost PerformLocked of ctx
// has released the lock. Callbacks are dropped if the locked function panics.
func (m *Manager) AfterUnlock(ctx context.Context, fn func()) {
	h := m.holder(ctx)
	if h == nil {
		fn()
		return
	}
	h.mu.Lock()
	if !h.done {
		h.after = append(h.after, fn)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	fn()
}

func (h *holder) finish() []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = true
	after := h.after
	h.after = nil
	return after
}

// Locked is PerformLocked for functions that produce a value.
func Locked[T any](ctx context.Context, m *Manager, mode Mode, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := m.PerformLocked(ctx, mode, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
