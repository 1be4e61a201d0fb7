package addons

import (
	"reflect"
	"sync"
)

// ServiceRegistry holds the services exported by one addon. It is populated by the
// export scanner and read by service locators; all methods are safe for concurrent use.
type ServiceRegistry struct {
	addon *Addon

	mu      sync.RWMutex
	entries []serviceEntry
}

type serviceEntry struct {
	instance ExportedInstance
	names    map[string]struct{}
}

func newServiceRegistry(a *Addon) *ServiceRegistry {
	return &ServiceRegistry{addon: a}
}

// Addon returns the addon owning this registry.
func (r *ServiceRegistry) Addon() *Addon {
	return r.addon
}

// Export publishes inst under the canonical name of its actual type and any extra
// names, typically the interfaces it is exported as.
func (r *ServiceRegistry) Export(inst ExportedInstance, names ...string) {
	entry := serviceEntry{instance: inst, names: map[string]struct{}{TypeName(inst.ActualType()): {}}}
	for _, n := range names {
		entry.names[n] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// ExportValue publishes v as a singleton service, also registered under the canonical
// names of the given interface types.
func (r *ServiceRegistry) ExportValue(v any, as ...reflect.Type) ExportedInstance {
	inst := Singleton(r.addon, v)
	names := make([]string, 0, len(as))
	for _, t := range as {
		names = append(names, TypeName(t))
	}
	r.Export(inst, names...)
	return inst
}

// ExportedInstances returns the services whose actual type is t or, when t is an
// interface, implements it.
func (r *ServiceRegistry) ExportedInstances(t reflect.Type) []ExportedInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ExportedInstance
	for _, e := range r.entries {
		if matchesType(e.instance.ActualType(), t) {
			out = append(out, e.instance)
		}
	}
	return out
}

// ExportedInstancesByName returns the services registered under the canonical type
// name. Used when the caller cannot name the Go type directly.
func (r *ServiceRegistry) ExportedInstancesByName(name string) []ExportedInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ExportedInstance
	for _, e := range r.entries {
		if _, ok := e.names[name]; ok {
			out = append(out, e.instance)
		}
	}
	return out
}

// Types returns the actual types of all exported services.
func (r *ServiceRegistry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[reflect.Type]struct{}, len(r.entries))
	out := make([]reflect.Type, 0, len(r.entries))
	for _, e := range r.entries {
		t := e.instance.ActualType()
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Len returns the number of exported services.
func (r *ServiceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func matchesType(actual, requested reflect.Type) bool {
	if actual == nil || requested == nil {
		return false
	}
	if actual == requested {
		return true
	}
	return requested.Kind() == reflect.Interface && actual.Implements(requested)
}
