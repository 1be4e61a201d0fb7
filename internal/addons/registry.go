package addons

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/bayleafwalker/kiln/internal/lock"
)

var (
	// ErrAddonExists is returned when adding an addon that is already installed.
	ErrAddonExists = errors.New("addon already registered")
	// ErrAddonNotFound is returned for operations on an addon that is not installed.
	ErrAddonNotFound = errors.New("addon not registered")
)

// Filter selects addons in ListAddons. A nil Filter selects every addon.
type Filter func(*Addon) bool

// WithStatus selects addons in the given status.
func WithStatus(s Status) Filter {
	return func(a *Addon) bool { return a.Status() == s }
}

// Started selects addons that are currently started.
func Started() Filter {
	return WithStatus(StatusStarted)
}

// Registry is the set of installed addons for one container. Every read goes through
// the lock manager in read mode and every mutation in write mode.
type Registry struct {
	lock   *lock.Manager
	log    logr.Logger
	addons map[ID]*Addon

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registry transitions.
func WithLogger(l logr.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates an empty registry guarded by lm. A nil lm gets a private manager.
func NewRegistry(lm *lock.Manager, opts ...Option) *Registry {
	if lm == nil {
		lm = lock.New()
	}
	r := &Registry{
		lock:      lm,
		log:       logr.Discard(),
		addons:    make(map[ID]*Addon),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LockManager returns the lock guarding this registry.
func (r *Registry) LockManager() *lock.Manager {
	return r.lock
}

// AddAddon installs a new addon in StatusNotStarted.
func (r *Registry) AddAddon(ctx context.Context, id ID) (*Addon, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	a, err := lock.Locked(ctx, r.lock, lock.Write, func(context.Context) (*Addon, error) {
		if _, ok := r.addons[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrAddonExists, id)
		}
		a := newAddon(id)
		r.addons[id] = a
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	r.log.V(1).Info("addon added", "addon", id.String())
	r.notifyAfterUnlock(ctx, Event{Type: EventAdded, Addon: a, New: StatusNotStarted})
	return a, nil
}

// RemoveAddon uninstalls an addon.
func (r *Registry) RemoveAddon(ctx context.Context, id ID) error {
	a, err := lock.Locked(ctx, r.lock, lock.Write, func(context.Context) (*Addon, error) {
		a, ok := r.addons[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAddonNotFound, id)
		}
		delete(r.addons, id)
		return a, nil
	})
	if err != nil {
		return err
	}
	r.log.V(1).Info("addon removed", "addon", id.String())
	r.notifyAfterUnlock(ctx, Event{Type: EventRemoved, Addon: a, Old: a.Status(), New: a.Status()})
	return nil
}

// SetStatus records a lifecycle transition made by the lifecycle engine.
func (r *Registry) SetStatus(ctx context.Context, id ID, status Status) error {
	var old Status
	a, err := lock.Locked(ctx, r.lock, lock.Write, func(context.Context) (*Addon, error) {
		a, ok := r.addons[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAddonNotFound, id)
		}
		old = a.Status()
		a.status.Store(int32(status))
		return a, nil
	})
	if err != nil {
		return err
	}
	if old != status {
		r.log.V(1).Info("addon status changed", "addon", id.String(), "from", old.String(), "to", status.String())
		r.notifyAfterUnlock(ctx, Event{Type: EventStatusChanged, Addon: a, Old: old, New: status})
	}
	return nil
}

// ListAddons returns the addons selected by filter, ordered by ID.
func (r *Registry) ListAddons(ctx context.Context, filter Filter) ([]*Addon, error) {
	return lock.Locked(ctx, r.lock, lock.Read, func(context.Context) ([]*Addon, error) {
		out := make([]*Addon, 0, len(r.addons))
		for _, a := range r.addons {
			if filter == nil || filter(a) {
				out = append(out, a)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].id.Less(out[j].id) })
		return out, nil
	})
}

// GetAddon returns the installed addon with the given ID.
func (r *Registry) GetAddon(ctx context.Context, id ID) (*Addon, error) {
	return lock.Locked(ctx, r.lock, lock.Read, func(context.Context) (*Addon, error) {
		a, ok := r.addons[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAddonNotFound, id)
		}
		return a, nil
	})
}

// GetServiceRegistry returns the service registry of an installed addon.
func (r *Registry) GetServiceRegistry(ctx context.Context, id ID) (*ServiceRegistry, error) {
	a, err := r.GetAddon(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.ServiceRegistry(), nil
}
