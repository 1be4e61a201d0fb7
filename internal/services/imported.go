// Package services lets a running addon find service instances exported by other
// currently started addons.
package services

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/lock"
	"github.com/bayleafwalker/kiln/internal/metrics"
)

// Match describes one exported instance found in a snapshot.
type Match struct {
	TypeName string
	Addon    addons.ID
}

func (m Match) String() string {
	return m.TypeName + " from addon " + m.Addon.String()
}

// Option configures an Imported.
type Option func(*options)

type options struct {
	log logr.Logger
}

// WithLogger sets the logger used for lookups.
func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.log = l }
}

// Imported is one consumer's view of the services of type T exported by started
// addons. Every query takes a fresh snapshot of the registry under the read lock; the
// lock is released before values are returned, so a value may outlive the addon that
// exported it.
type Imported[T any] struct {
	registry *addons.Registry
	typ      reflect.Type
	typeName string
	handles  *handles
	log      logr.Logger

	// last holds the matches of the most recent snapshot, for String.
	last atomic.Pointer[[]Match]
}

// Import returns a locator for services assignable to T.
func Import[T any](registry *addons.Registry, opts ...Option) *Imported[T] {
	typ := addons.TypeOf[T]()
	return newImported[T](registry, typ, addons.TypeName(typ), opts)
}

// ImportByName returns a locator for services registered under the canonical type
// name, for callers that cannot name the Go type.
func ImportByName(registry *addons.Registry, typeName string, opts ...Option) *Imported[any] {
	return newImported[any](registry, nil, typeName, opts)
}

func newImported[T any](registry *addons.Registry, typ reflect.Type, typeName string, opts []Option) *Imported[T] {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Imported[T]{
		registry: registry,
		typ:      typ,
		typeName: typeName,
		handles:  newHandles(),
		log:      o.log.WithValues("service", typeName),
	}
}

// Get returns the single matching service.
func (i *Imported[T]) Get(ctx context.Context) (T, error) {
	var zero T
	snap, err := i.snapshot(ctx)
	if err != nil {
		return zero, err
	}
	switch len(snap) {
	case 0:
		metrics.ServiceLookupTotal.WithLabelValues(metrics.OutcomeUnsatisfied).Inc()
		return zero, &NoSuchServiceError{TypeName: i.typeName}
	case 1:
		metrics.ServiceLookupTotal.WithLabelValues(metrics.OutcomeFound).Inc()
		return i.handOut(snap[0])
	default:
		metrics.ServiceLookupTotal.WithLabelValues(metrics.OutcomeAmbiguous).Inc()
		return zero, &AmbiguousServiceError{TypeName: i.typeName, Matches: describe(snap)}
	}
}

// SelectExact returns the first matching service whose concrete type is exactly
// exact, bypassing the ambiguity check.
func (i *Imported[T]) SelectExact(ctx context.Context, exact reflect.Type) (T, error) {
	var zero T
	if exact == nil {
		return zero, fmt.Errorf("services: type to select must not be nil")
	}
	snap, err := i.snapshot(ctx)
	if err != nil {
		return zero, err
	}
	for _, inst := range snap {
		if inst.ActualType() == exact {
			return i.handOut(inst)
		}
	}
	return zero, &NoSuchServiceError{TypeName: addons.TypeName(exact)}
}

// Iterate returns the matching services of one snapshot taken now. Values are
// obtained lazily as the sequence is ranged over, and the sequence can be consumed
// only once; call Iterate again for a fresh snapshot.
func (i *Imported[T]) Iterate(ctx context.Context) iter.Seq[T] {
	snap, err := i.snapshot(ctx)
	if err != nil {
		i.log.Error(err, "snapshot failed")
	}
	var consumed atomic.Bool
	return func(yield func(T) bool) {
		if consumed.Swap(true) {
			return
		}
		for _, inst := range snap {
			v, err := i.handOut(inst)
			if err != nil {
				i.log.Error(err, "skipping service", "addon", sourceID(inst).String())
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// IsUnsatisfied reports whether the current snapshot has no match.
func (i *Imported[T]) IsUnsatisfied(ctx context.Context) bool {
	snap, _ := i.snapshot(ctx)
	return len(snap) == 0
}

// IsAmbiguous reports whether the current snapshot has more than one match.
func (i *Imported[T]) IsAmbiguous(ctx context.Context) bool {
	snap, _ := i.snapshot(ctx)
	return len(snap) > 1
}

// Matches describes the current snapshot.
func (i *Imported[T]) Matches(ctx context.Context) ([]Match, error) {
	snap, err := i.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return describe(snap), nil
}

// Release tells the exported instance that produced instance that this consumer is
// done with it. Values this locator did not hand out are ignored.
func (i *Imported[T]) Release(instance T) {
	source, ok := i.handles.checkin(any(instance))
	if !ok {
		i.log.V(1).Info("release of untracked instance ignored")
		return
	}
	metrics.ServiceHandlesOutstanding.Dec()
	source.Release(instance)
}

// TypeName returns the canonical name of the requested service type.
func (i *Imported[T]) TypeName() string {
	return i.typeName
}

// String describes the matches seen by the most recent query. It does not take the
// registry lock, so it can be used in log lines inside a locked section; before the
// first query it reports "[]".
func (i *Imported[T]) String() string {
	var snap []Match
	if last := i.last.Load(); last != nil {
		snap = *last
	}
	parts := make([]string, 0, len(snap))
	for _, m := range snap {
		parts = append(parts, m.String())
	}
	return "[" + strings.Join(parts, ",\n") + "]"
}

func (i *Imported[T]) snapshot(ctx context.Context) ([]addons.ExportedInstance, error) {
	metrics.ServiceSnapshotTotal.Inc()
	snap, err := lock.Locked(ctx, i.registry.LockManager(), lock.Read, func(ctx context.Context) ([]addons.ExportedInstance, error) {
		started, err := i.registry.ListAddons(ctx, addons.Started())
		if err != nil {
			return nil, err
		}

		var out []addons.ExportedInstance
		seen := make(map[addons.ExportedInstance]struct{})
		for _, a := range started {
			var found []addons.ExportedInstance
			if i.typ != nil {
				found = a.ServiceRegistry().ExportedInstances(i.typ)
			} else {
				found = a.ServiceRegistry().ExportedInstancesByName(i.typeName)
			}
			for _, inst := range found {
				if reflect.TypeOf(inst).Comparable() {
					if _, dup := seen[inst]; dup {
						continue
					}
					seen[inst] = struct{}{}
				}
				out = append(out, inst)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	matches := describe(snap)
	i.last.Store(&matches)
	return snap, nil
}

func (i *Imported[T]) handOut(inst addons.ExportedInstance) (T, error) {
	var zero T
	raw := inst.Get()
	v, ok := raw.(T)
	if !ok {
		inst.Release(raw)
		return zero, fmt.Errorf("services: %s from addon %s is %T, not %s",
			addons.TypeName(inst.ActualType()), sourceID(inst), raw, i.typeName)
	}
	if trackable(raw) {
		i.handles.checkout(raw, inst)
		metrics.ServiceHandlesOutstanding.Inc()
	}
	return v, nil
}

func describe(snap []addons.ExportedInstance) []Match {
	out := make([]Match, 0, len(snap))
	for _, inst := range snap {
		out = append(out, Match{TypeName: addons.TypeName(inst.ActualType()), Addon: sourceID(inst)})
	}
	return out
}

func sourceID(inst addons.ExportedInstance) addons.ID {
	if src := inst.Source(); src != nil {
		return src.ID()
	}
	return addons.ID{}
}
