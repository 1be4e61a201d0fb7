// Package repository defines the artifact repository consumed by the resolver and
// provides in-memory and directory-backed implementations.
package repository

import (
	"context"
	"errors"
	"strings"
)

// ErrArtifactNotFound is wrapped by repository errors for coordinates the repository
// does not hold.
var ErrArtifactNotFound = errors.New("artifact not found")

// Scope is the dependency scope attached to an edge.
type Scope string

const (
	ScopeCompile  Scope = "compile"
	ScopeRuntime  Scope = "runtime"
	ScopeProvided Scope = "provided"
	ScopeTest     Scope = "test"
	ScopeSystem   Scope = "system"
)

// Normalize lower-cases the scope. An empty scope stays empty.
func (s Scope) Normalize() Scope {
	return Scope(strings.ToLower(strings.TrimSpace(string(s))))
}

// Artifact is a repository coordinate. Version may be a range expression when
// querying versions.
type Artifact struct {
	Name       string
	Version    string
	Classifier string
}

func (a Artifact) String() string {
	if a.Classifier == "" {
		return a.Name + ":" + a.Version
	}
	return a.Name + ":" + a.Classifier + ":" + a.Version
}

// Dependency is a direct dependency edge as declared by an artifact.
type Dependency struct {
	Artifact Artifact
	Scope    Scope
	Optional bool
}

// ResolvedArtifact is an artifact with its local file.
type ResolvedArtifact struct {
	Artifact Artifact
	File     string
}

// Repository is the artifact transport used by the resolver.
type Repository interface {
	// CollectDependencies returns the direct dependencies of a, addon and library
	// artifacts alike.
	CollectDependencies(ctx context.Context, a Artifact) ([]Dependency, error)
	// ResolveArtifacts returns a, artifacts sharing its name and version under other
	// classifiers, and the library artifacts it needs transitively. Dependencies with
	// a's classifier are listed but not traversed.
	ResolveArtifacts(ctx context.Context, a Artifact) ([]ResolvedArtifact, error)
	// ResolveVersionRange returns the versions of a.Name/a.Classifier inside the range
	// expression in a.Version, ascending.
	ResolveVersionRange(ctx context.Context, a Artifact) ([]string, error)
}
