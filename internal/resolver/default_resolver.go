package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/metrics"
	"github.com/bayleafwalker/kiln/internal/repository"
	"github.com/bayleafwalker/kiln/internal/semver"
)

// DefaultClassifier tags addon artifacts in the repository.
const DefaultClassifier = "forge-addon"

// DefaultTimeout bounds each repository call.
const DefaultTimeout = 30 * time.Second

// Options configures a DefaultResolver.
type Options struct {
	Repository repository.Repository
	// Classifier distinguishes addon artifacts from libraries. Defaults to
	// DefaultClassifier.
	Classifier string
	// Timeout bounds each repository call. Zero means DefaultTimeout; negative disables
	// the bound.
	Timeout time.Duration
	// EagerResources resolves every node's resources while building the graph instead
	// of on first Info.Resources call.
	EagerResources bool
	Logger         logr.Logger
}

// DefaultResolver resolves addons against an artifact repository.
type DefaultResolver struct {
	repo       repository.Repository
	classifier string
	timeout    time.Duration
	eager      bool
	log        logr.Logger
}

var _ Resolver = (*DefaultResolver)(nil)

func NewDefault(opts Options) *DefaultResolver {
	r := &DefaultResolver{
		repo:       opts.Repository,
		classifier: opts.Classifier,
		timeout:    opts.Timeout,
		eager:      opts.EagerResources,
		log:        opts.Logger,
	}
	if r.classifier == "" {
		r.classifier = DefaultClassifier
	}
	if r.timeout == 0 {
		r.timeout = DefaultTimeout
	}
	if r.log.GetSink() == nil {
		r.log = logr.Discard()
	}
	return r
}

// Classifier returns the addon classifier in use.
func (r *DefaultResolver) Classifier() string {
	return r.classifier
}

// graphState is the per-call state of ResolveGraph.
//
// It uses a dual-map pattern:
//   - resolved: nodes already built, shared by every parent that depends on them.
//   - onPath: coordinates on the current ancestor chain, for cycle detection. An
//     entry is added when a node starts resolving and removed when it completes.
type graphState struct {
	resolved map[addons.ID]*Info
	onPath   map[addons.ID]bool
	path     []addons.ID
}

func (r *DefaultResolver) ResolveGraph(ctx context.Context, id addons.ID) (*Info, error) {
	const op = "graph"
	defer observe(op, time.Now())

	if err := id.Validate(); err != nil {
		return nil, r.fail(op, id.String(), err)
	}
	st := &graphState{
		resolved: make(map[addons.ID]*Info),
		onPath:   make(map[addons.ID]bool),
	}
	info, err := r.resolveNode(ctx, st, id)
	if err != nil {
		return nil, r.fail(op, id.String(), err)
	}
	r.log.V(1).Info("resolved addon graph", "addon", id.String(), "nodes", len(st.resolved))
	return info, nil
}

func (r *DefaultResolver) resolveNode(ctx context.Context, st *graphState, id addons.ID) (*Info, error) {
	if st.onPath[id] {
		path := append(append([]addons.ID(nil), st.path...), id)
		return nil, &CycleError{Path: path}
	}
	if info, ok := st.resolved[id]; ok {
		return info, nil
	}

	st.onPath[id] = true
	st.path = append(st.path, id)
	defer func() {
		delete(st.onPath, id)
		st.path = st.path[:len(st.path)-1]
	}()

	deps, err := r.collect(ctx, id)
	if err != nil {
		return nil, err
	}

	b := newInfoBuilder(id)
	for _, dep := range deps {
		if dep.Artifact.Classifier != r.classifier {
			// Libraries are resources of this node, not graph nodes.
			continue
		}
		if dep.Scope.Normalize() == repository.ScopeTest {
			continue
		}
		childID := addons.NewID(dep.Artifact.Name, dep.Artifact.Version)
		child, err := r.resolveNode(ctx, st, childID)
		if err != nil {
			return nil, err
		}
		if dep.Optional {
			b.addOptional(child, false)
		} else {
			b.addRequired(child, isExported(dep))
		}
	}

	load := func() ([]string, error) {
		callCtx, cancel := r.detachedContext()
		defer cancel()
		return r.ResolveResources(callCtx, id)
	}
	if r.eager {
		files, err := r.resolveResources(ctx, id)
		if err != nil {
			return nil, err
		}
		load = func() ([]string, error) { return files, nil }
	}

	info := b.build(load)
	st.resolved[id] = info
	return info, nil
}

// isExported maps a non-optional edge to its visibility: compile and runtime scopes
// re-export, provided and absent scopes do not.
func isExported(dep repository.Dependency) bool {
	if dep.Optional {
		return false
	}
	switch dep.Scope.Normalize() {
	case repository.ScopeCompile, repository.ScopeRuntime:
		return true
	default:
		return false
	}
}

func (r *DefaultResolver) collect(ctx context.Context, id addons.ID) ([]repository.Dependency, error) {
	metrics.RepositoryCallTotal.WithLabelValues("collect").Inc()
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	deps, err := r.repo.CollectDependencies(callCtx, r.artifact(id))
	if err != nil {
		return nil, fmt.Errorf("collect dependencies of %s: %w", id, err)
	}
	return deps, nil
}

func (r *DefaultResolver) ResolveResources(ctx context.Context, id addons.ID) ([]string, error) {
	const op = "resources"
	defer observe(op, time.Now())

	if err := id.Validate(); err != nil {
		return nil, r.fail(op, id.String(), err)
	}
	files, err := r.resolveResources(ctx, id)
	if err != nil {
		return nil, r.fail(op, id.String(), err)
	}
	return files, nil
}

func (r *DefaultResolver) resolveResources(ctx context.Context, id addons.ID) ([]string, error) {
	metrics.RepositoryCallTotal.WithLabelValues("artifacts").Inc()
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	self := r.artifact(id)
	resolved, err := r.repo.ResolveArtifacts(callCtx, self)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(resolved))
	files := make([]string, 0, len(resolved))
	for _, ra := range resolved {
		// Other addons are installed from their own resources.
		if ra.Artifact.Classifier == r.classifier && ra.Artifact != self {
			continue
		}
		if ra.File == "" {
			continue
		}
		f := filepath.Clean(ra.File)
		if seen[f] {
			continue
		}
		seen[f] = true
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files for %s", ErrArtifactNotFound, self)
	}
	sort.Strings(files)
	return files, nil
}

func (r *DefaultResolver) ResolveVersions(ctx context.Context, name, rangeExpr string) ([]addons.ID, error) {
	const op = "versions"
	defer observe(op, time.Now())

	target := name + "," + rangeExpr
	if name == "" {
		return nil, r.fail(op, target, addons.ErrInvalidID)
	}
	norm := semver.NormalizeRange(rangeExpr)
	rng, err := semver.ParseRange(norm)
	if err != nil {
		return nil, r.fail(op, target, err)
	}

	metrics.RepositoryCallTotal.WithLabelValues("versions").Inc()
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	raw, err := r.repo.ResolveVersionRange(callCtx, repository.Artifact{Name: name, Version: norm, Classifier: r.classifier})
	if err != nil {
		return nil, r.fail(op, target, err)
	}

	versions := make([]semver.Version, 0, len(raw))
	for _, v := range raw {
		pv, err := semver.ParseVersion(v)
		if err != nil {
			r.log.V(1).Info("skipping unparseable version", "addon", name, "version", v)
			continue
		}
		versions = append(versions, pv)
	}

	matched := rng.Filter(versions)
	out := make([]addons.ID, 0, len(matched))
	for _, v := range matched {
		out = append(out, addons.NewID(name, v.String()))
	}
	return out, nil
}

// ResolveQuery resolves the user-facing "name,version" form with ResolveVersions.
func (r *DefaultResolver) ResolveQuery(ctx context.Context, query string) ([]addons.ID, error) {
	name, version, err := addons.ParseQuery(query)
	if err != nil {
		return nil, r.fail("versions", query, err)
	}
	return r.ResolveVersions(ctx, name, version)
}

func (r *DefaultResolver) artifact(id addons.ID) repository.Artifact {
	return repository.Artifact{Name: id.Name, Version: id.Version, Classifier: r.classifier}
}

func (r *DefaultResolver) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// detachedContext is used by lazy resource loading, which runs after the originating
// call has returned.
func (r *DefaultResolver) detachedContext() (context.Context, context.CancelFunc) {
	return r.callContext(context.Background())
}

func (r *DefaultResolver) fail(op, target string, err error) error {
	metrics.ResolutionErrorTotal.WithLabelValues(op).Inc()
	if errors.Is(err, context.DeadlineExceeded) {
		r.log.Info("repository call timed out", "op", op, "target", target)
	}
	return &ResolutionError{Op: op, Target: target, Err: err}
}

func observe(op string, start time.Time) {
	metrics.ResolutionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
