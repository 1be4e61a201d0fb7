package resolver

import (
	"context"

	"github.com/bayleafwalker/kiln/internal/addons"
)

// Resolver turns addon coordinates into dependency graphs, resource sets and version
// lists. Implementations are safe for concurrent use; each call is independent.
type Resolver interface {
	// ResolveGraph returns the fully resolved dependency graph rooted at id.
	ResolveGraph(ctx context.Context, id addons.ID) (*Info, error)
	// ResolveResources returns the files that must be loaded for id itself.
	ResolveResources(ctx context.Context, id addons.ID) ([]string, error)
	// ResolveVersions returns the coordinates of name whose version falls in rangeExpr,
	// ascending. An empty rangeExpr means every version.
	ResolveVersions(ctx context.Context, name, rangeExpr string) ([]addons.ID, error)
}
