package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/repository"
)

var (
	// ErrArtifactNotFound indicates the repository holds no matching artifact.
	ErrArtifactNotFound = repository.ErrArtifactNotFound
	// ErrCycle matches any *CycleError.
	ErrCycle = errors.New("dependency cycle")
)

// ResolutionError is returned by every resolver operation that fails. The whole call
// fails; no partial graph is returned.
type ResolutionError struct {
	// Op is one of "graph", "resources" or "versions".
	Op string
	// Target is the coordinate or query being resolved.
	Target string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// CycleError reports a coordinate that reappears on its own ancestor path.
type CycleError struct {
	// Path runs from the outermost ancestor to the repeated coordinate.
	Path []addons.ID
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Path))
	for _, id := range e.Path {
		parts = append(parts, id.String())
	}
	return "dependency cycle detected: " + strings.Join(parts, " -> ")
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}
