package resolver

import (
	"sort"
	"sync"

	"github.com/bayleafwalker/kiln/internal/addons"
)

// Edge is a dependency of an Info node.
type Edge struct {
	Info *Info
	// Exported makes the dependency's exports visible to the dependents of the
	// consumer, not only to the consumer itself.
	Exported bool
}

// Info is a node of a resolved dependency graph. Children are complete before they are
// attached to a parent, and the node is immutable once built. A coordinate that
// appears several times in one graph is represented by a single shared *Info.
type Info struct {
	id       addons.ID
	required []Edge
	optional []Edge

	loadResources func() ([]string, error)
	once          sync.Once
	resources     []string
	resourcesErr  error
}

// ID returns the coordinate of this node.
func (i *Info) ID() addons.ID {
	return i.id
}

// Required returns the dependencies that must be present at runtime.
func (i *Info) Required() []Edge {
	return append([]Edge(nil), i.required...)
}

// Optional returns the dependencies that may be absent at runtime.
func (i *Info) Optional() []Edge {
	return append([]Edge(nil), i.optional...)
}

func (i *Info) RequiredIDs() []addons.ID {
	return edgeIDs(i.required)
}

func (i *Info) OptionalIDs() []addons.ID {
	return edgeIDs(i.optional)
}

// Resources returns the files of this addon. They are resolved on first call and
// cached, including a failure.
func (i *Info) Resources() ([]string, error) {
	i.once.Do(func() {
		if i.loadResources == nil {
			return
		}
		i.resources, i.resourcesErr = i.loadResources()
	})
	if i.resourcesErr != nil {
		return nil, i.resourcesErr
	}
	return append([]string(nil), i.resources...), nil
}

// Walk calls fn once for every node reachable from i, dependencies before
// dependents. Walking stops at the first error.
func (i *Info) Walk(fn func(*Info) error) error {
	seen := make(map[addons.ID]bool)
	var visit func(n *Info) error
	visit = func(n *Info) error {
		if seen[n.id] {
			return nil
		}
		seen[n.id] = true
		for _, e := range n.required {
			if err := visit(e.Info); err != nil {
				return err
			}
		}
		for _, e := range n.optional {
			if err := visit(e.Info); err != nil {
				return err
			}
		}
		return fn(n)
	}
	return visit(i)
}

func (i *Info) String() string {
	return i.id.String()
}

func edgeIDs(edges []Edge) []addons.ID {
	out := make([]addons.ID, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Info.id)
	}
	return out
}

// infoBuilder collects the edges of one node. A coordinate declared both required and
// optional by the same parent stays required; a repeated declaration is exported if
// any declaration is.
type infoBuilder struct {
	id       addons.ID
	required map[addons.ID]Edge
	optional map[addons.ID]Edge
}

func newInfoBuilder(id addons.ID) *infoBuilder {
	return &infoBuilder{
		id:       id,
		required: make(map[addons.ID]Edge),
		optional: make(map[addons.ID]Edge),
	}
}

func (b *infoBuilder) addRequired(child *Info, exported bool) {
	delete(b.optional, child.id)
	e := b.required[child.id]
	b.required[child.id] = Edge{Info: child, Exported: e.Exported || exported}
}

func (b *infoBuilder) addOptional(child *Info, exported bool) {
	if _, ok := b.required[child.id]; ok {
		return
	}
	e := b.optional[child.id]
	b.optional[child.id] = Edge{Info: child, Exported: e.Exported || exported}
}

func (b *infoBuilder) build(loadResources func() ([]string, error)) *Info {
	return &Info{
		id:            b.id,
		required:      sortedEdges(b.required),
		optional:      sortedEdges(b.optional),
		loadResources: loadResources,
	}
}

func sortedEdges(m map[addons.ID]Edge) []Edge {
	out := make([]Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info.id.Less(out[j].Info.id) })
	return out
}
