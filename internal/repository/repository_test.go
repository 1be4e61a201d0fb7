package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

const addon = "forge-addon"

func art(name, version, classifier string) Artifact {
	return Artifact{Name: name, Version: version, Classifier: classifier}
}

func files(ras []ResolvedArtifact) []string {
	out := make([]string, 0, len(ras))
	for _, ra := range ras {
		out = append(out, ra.File)
	}
	sort.Strings(out)
	return out
}

func TestMemory_ResolveArtifactsStopsAtAddons(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Add(art("test:lib", "1.0", ""), "lib.jar", Dependency{Artifact: art("test:lib2", "1.0", "")})
	m.Add(art("test:lib2", "1.0", ""), "lib2.jar", Dependency{Artifact: art("test:testlib", "1.0", ""), Scope: ScopeTest})
	m.Add(art("test:other", "1.0", addon), "other.jar", Dependency{Artifact: art("test:hidden", "1.0", "")})
	m.Add(art("test:root", "1.0", addon), "root.jar",
		Dependency{Artifact: art("test:lib", "1.0", ""), Scope: ScopeCompile},
		Dependency{Artifact: art("test:other", "1.0", addon), Scope: ScopeCompile},
	)
	m.Add(art("test:root", "1.0", ""), "root-api.jar")

	got, err := m.ResolveArtifacts(ctx, art("test:root", "1.0", addon))
	if err != nil {
		t.Fatalf("ResolveArtifacts: %v", err)
	}
	want := []string{"lib.jar", "lib2.jar", "other.jar", "root-api.jar", "root.jar"}
	if !reflect.DeepEqual(files(got), want) {
		t.Fatalf("expected %v, got %v", want, files(got))
	}
}

func TestMemory_NotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.CollectDependencies(context.Background(), art("test:missing", "1.0", addon))
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestMemory_ResolveVersionRange(t *testing.T) {
	m := NewMemory()
	for _, v := range []string{"2.0.0.Final", "1.0.0.Final", "1.10.0.Final", "1.2.0.Final"} {
		m.Add(art("test:a", v, addon), "a.jar")
	}
	m.Add(art("test:a", "9.0.0", ""), "a-lib.jar")

	got, err := m.ResolveVersionRange(context.Background(), art("test:a", "[1.1,2.0)", addon))
	if err != nil {
		t.Fatalf("ResolveVersionRange: %v", err)
	}
	want := []string{"1.2.0.Final", "1.10.0.Final"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func writeDescriptor(t *testing.T, root, name, version, body string) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(name), version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, DescriptorFile), []byte(body), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
}

func TestLocal_ReadsDescriptors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeDescriptor(t, root, "test/no_dep", "1.0.0.Final", `
artifacts:
  - classifier: forge-addon
    file: no_dep.jar
`)
	writeDescriptor(t, root, "test/one_dep", "1.0.0.Final", `
artifacts:
  - classifier: forge-addon
    file: one_dep.jar
    dependencies:
      - name: test:no_dep
        version: 1.0.0.Final
        classifier: forge-addon
        scope: compile
      - name: test:junit
        version: "4.12"
        scope: test
`)
	writeDescriptor(t, root, "test/one_dep", "2.0.0.Final", `
artifacts:
  - file: only-a-library.jar
`)

	l := NewLocal(root)
	deps, err := l.CollectDependencies(ctx, art("test:one_dep", "1.0.0.Final", addon))
	if err != nil {
		t.Fatalf("CollectDependencies: %v", err)
	}
	if len(deps) != 2 || deps[0].Artifact != art("test:no_dep", "1.0.0.Final", addon) || deps[0].Scope != ScopeCompile {
		t.Fatalf("unexpected dependencies: %+v", deps)
	}

	ras, err := l.ResolveArtifacts(ctx, art("test:one_dep", "1.0.0.Final", addon))
	if err != nil {
		t.Fatalf("ResolveArtifacts: %v", err)
	}
	if len(ras) != 2 {
		t.Fatalf("expected own artifact and addon dependency, got %+v", ras)
	}
	if ras[0].File != filepath.Join(root, "test", "one_dep", "1.0.0.Final", "one_dep.jar") {
		t.Fatalf("expected file resolved against version dir, got %q", ras[0].File)
	}

	versions, err := l.ResolveVersionRange(ctx, art("test:one_dep", "[,)", addon))
	if err != nil {
		t.Fatalf("ResolveVersionRange: %v", err)
	}
	if !reflect.DeepEqual(versions, []string{"1.0.0.Final"}) {
		t.Fatalf("expected only the addon-classified version, got %v", versions)
	}

	none, err := l.ResolveVersionRange(ctx, art("test:unknown", "[,)", addon))
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result for unknown name, got %v, %v", none, err)
	}

	_, err = l.CollectDependencies(ctx, art("test:one_dep", "3.0", addon))
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestLocal_MalformedDescriptor(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "test/bad", "1.0", "artifacts: [")
	_, err := NewLocal(root).CollectDependencies(context.Background(), art("test:bad", "1.0", addon))
	if err == nil || errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
