package repository

import (
	"context"
	"fmt"

	"github.com/bayleafwalker/kiln/internal/semver"
)

// Entry is one stored artifact.
type Entry struct {
	Artifact     Artifact
	File         string
	Dependencies []Dependency
}

// catalog is the storage behind a repository.
type catalog interface {
	entry(ctx context.Context, a Artifact) (*Entry, error)
	// classifiers lists the classifiers stored for name:version.
	classifiers(ctx context.Context, name, version string) ([]string, error)
	// versions lists the stored versions of name with the given classifier.
	versions(ctx context.Context, name, classifier string) ([]string, error)
}

// catalogRepository implements Repository on top of a catalog.
type catalogRepository struct {
	c catalog
}

func (r catalogRepository) CollectDependencies(ctx context.Context, a Artifact) ([]Dependency, error) {
	e, err := r.c.entry(ctx, a)
	if err != nil {
		return nil, err
	}
	out := make([]Dependency, len(e.Dependencies))
	copy(out, e.Dependencies)
	return out, nil
}

func (r catalogRepository) ResolveArtifacts(ctx context.Context, a Artifact) ([]ResolvedArtifact, error) {
	root, err := r.c.entry(ctx, a)
	if err != nil {
		return nil, err
	}

	var out []ResolvedArtifact
	visited := map[Artifact]bool{a: true}
	out = append(out, ResolvedArtifact{Artifact: root.Artifact, File: root.File})

	classifiers, err := r.c.classifiers(ctx, a.Name, a.Version)
	if err != nil {
		return nil, err
	}
	for _, cl := range classifiers {
		co := Artifact{Name: a.Name, Version: a.Version, Classifier: cl}
		if visited[co] {
			continue
		}
		visited[co] = true
		e, err := r.c.entry(ctx, co)
		if err != nil {
			return nil, err
		}
		out = append(out, ResolvedArtifact{Artifact: e.Artifact, File: e.File})
	}

	var walk func(e *Entry, direct bool) error
	walk = func(e *Entry, direct bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, dep := range e.Dependencies {
			if dep.Scope.Normalize() == ScopeTest || (dep.Optional && !direct) {
				continue
			}
			if visited[dep.Artifact] {
				continue
			}
			visited[dep.Artifact] = true
			child, err := r.c.entry(ctx, dep.Artifact)
			if err != nil {
				return fmt.Errorf("dependency of %s: %w", e.Artifact, err)
			}
			out = append(out, ResolvedArtifact{Artifact: child.Artifact, File: child.File})
			if dep.Artifact.Classifier == a.Classifier {
				continue
			}
			if err := walk(child, false); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (r catalogRepository) ResolveVersionRange(ctx context.Context, a Artifact) ([]string, error) {
	rng, err := semver.ParseRange(a.Version)
	if err != nil {
		return nil, err
	}
	raw, err := r.c.versions(ctx, a.Name, a.Classifier)
	if err != nil {
		return nil, err
	}
	parsed := make([]semver.Version, 0, len(raw))
	for _, v := range raw {
		pv, err := semver.ParseVersion(v)
		if err != nil {
			continue
		}
		parsed = append(parsed, pv)
	}
	matched := rng.Filter(parsed)
	out := make([]string, 0, len(matched))
	for _, v := range matched {
		out = append(out, v.String())
	}
	return out, nil
}

func notFound(a Artifact) error {
	return fmt.Errorf("%w: %s", ErrArtifactNotFound, a)
}
