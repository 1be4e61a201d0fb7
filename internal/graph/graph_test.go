package graph

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/repository"
	"github.com/bayleafwalker/kiln/internal/resolver"
)

func nid(name string) addons.ID {
	return addons.NewID(name, "1.0")
}

func dependsOn(from, to string, exported bool) Edge {
	return Edge{From: nid(from), To: nid(to), Exported: exported}
}

func TestInstallOrder_EmptyGraph(t *testing.T) {
	t.Parallel()
	order, err := New().InstallOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestInstallOrder_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// c depends on b, b depends on a
	g.AddEdge(dependsOn("c", "b", true))
	g.AddEdge(dependsOn("b", "a", true))

	order, err := g.InstallOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []addons.ID{nid("a"), nid("b"), nid("c")}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestInstallOrder_DiamondIsDeterministic(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge(dependsOn("top", "right", false))
	g.AddEdge(dependsOn("top", "left", false))
	g.AddEdge(dependsOn("right", "base", false))
	g.AddEdge(dependsOn("left", "base", false))
	g.AddEdge(dependsOn("left", "base", true))

	order, err := g.InstallOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []addons.ID{nid("base"), nid("left"), nid("right"), nid("top")}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestInstallOrder_Cycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge(dependsOn("a", "b", false))
	g.AddEdge(dependsOn("b", "a", false))
	g.AddNode(nid("free"))

	_, err := g.InstallOrder()
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if !slices.Equal(cycle.Cycle, []addons.ID{nid("a"), nid("b")}) {
		t.Errorf("unexpected cycle members %v", cycle.Cycle)
	}
	if !errors.Is(err, resolver.ErrCycle) {
		t.Error("expected cycle to match resolver.ErrCycle")
	}
}

func TestExported_FollowsReexports(t *testing.T) {
	t.Parallel()
	g := New()
	// app -> ui (not exported) -> widgets (exported) -> icons (exported)
	// ui -> internal (not exported)
	g.AddEdge(dependsOn("app", "ui", false))
	g.AddEdge(dependsOn("ui", "widgets", true))
	g.AddEdge(dependsOn("widgets", "icons", true))
	g.AddEdge(dependsOn("ui", "internal", false))

	got := g.Exported(nid("app"))
	expected := []addons.ID{nid("icons"), nid("ui"), nid("widgets")}
	if !slices.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}

	if got := g.Exported(nid("icons")); len(got) != 0 {
		t.Errorf("expected nothing visible to a leaf, got %v", got)
	}
}

func TestFromInfo(t *testing.T) {
	t.Parallel()
	const cl = resolver.DefaultClassifier
	art := func(name string) repository.Artifact {
		return repository.Artifact{Name: name, Version: "1.0", Classifier: cl}
	}
	m := repository.NewMemory()
	m.Add(art("test:base"), "/repo/base.jar")
	m.Add(art("test:extra"), "/repo/extra.jar")
	m.Add(art("test:mid"), "/repo/mid.jar",
		repository.Dependency{Artifact: art("test:base"), Scope: repository.ScopeCompile})
	m.Add(art("test:app"), "/repo/app.jar",
		repository.Dependency{Artifact: art("test:mid"), Scope: repository.ScopeProvided},
		repository.Dependency{Artifact: art("test:extra"), Optional: true})

	info, err := resolver.NewDefault(resolver.Options{Repository: m}).ResolveGraph(context.Background(), nid("test:app"))
	if err != nil {
		t.Fatalf("ResolveGraph: %v", err)
	}

	g := FromInfo(info)
	if g.Len() != 4 {
		t.Fatalf("expected 4 nodes, got %v", g.Nodes())
	}
	order, err := g.InstallOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []addons.ID{nid("test:base"), nid("test:extra"), nid("test:mid"), nid("test:app")}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}

	edges := g.Edges(nid("test:app"))
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges from app, got %v", edges)
	}
	for _, e := range edges {
		if e.To == nid("test:extra") && !e.Optional {
			t.Error("expected edge to extra to be optional")
		}
		if e.Exported {
			t.Errorf("expected no exported edges from app, got %+v", e)
		}
	}

	// mid is visible, base is only re-exported by mid
	visible := g.Exported(nid("test:app"))
	if !slices.Equal(visible, []addons.ID{nid("test:base"), nid("test:extra"), nid("test:mid")}) {
		t.Errorf("unexpected visible set %v", visible)
	}
}
