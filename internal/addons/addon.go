package addons

import "sync/atomic"

// Addon is an installed addon unit. Addons are created and owned by a Registry.
type Addon struct {
	id       ID
	status   atomic.Int32
	services *ServiceRegistry
}

func newAddon(id ID) *Addon {
	a := &Addon{id: id}
	a.services = newServiceRegistry(a)
	return a
}

func (a *Addon) ID() ID {
	return a.id
}

// Status returns the last status written by the registry. Callers that need a status
// consistent with other addons must read it inside a registry snapshot.
func (a *Addon) Status() Status {
	return Status(a.status.Load())
}

// ServiceRegistry returns the services exported by this addon.
func (a *Addon) ServiceRegistry() *ServiceRegistry {
	return a.services
}

func (a *Addon) String() string {
	return a.id.String() + " (" + a.Status().String() + ")"
}
