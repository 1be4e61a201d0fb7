package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DescriptorFile is the name of the per-version descriptor in a Local repository.
const DescriptorFile = "artifact.yaml"

// Local is a Repository stored in a directory tree:
//
//	<root>/<name, ':' as '/'>/<version>/artifact.yaml
//
// The descriptor lists the artifacts published for that name and version:
//
//	artifacts:
//	  - classifier: forge-addon
//	    file: one_dep-1.0.0.Final-forge-addon.jar
//	    dependencies:
//	      - name: test:no_dep
//	        version: 1.0.0.Final
//	        classifier: forge-addon
//	        scope: compile
//	  - file: one_dep-1.0.0.Final.jar
//
// Relative file paths are resolved against the version directory.
type Local struct {
	catalogRepository
	root string
}

type localCatalog struct {
	root string
}

type descriptor struct {
	Artifacts []descriptorArtifact `yaml:"artifacts"`
}

type descriptorArtifact struct {
	Classifier   string                 `yaml:"classifier"`
	File         string                 `yaml:"file"`
	Dependencies []descriptorDependency `yaml:"dependencies"`
}

type descriptorDependency struct {
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
	Classifier string `yaml:"classifier"`
	Scope      string `yaml:"scope"`
	Optional   bool   `yaml:"optional"`
}

// NewLocal returns a repository rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{catalogRepository: catalogRepository{c: localCatalog{root: dir}}, root: dir}
}

// Root returns the repository directory.
func (l *Local) Root() string {
	return l.root
}

func (c localCatalog) nameDir(name string) string {
	return filepath.Join(c.root, filepath.FromSlash(strings.ReplaceAll(name, ":", "/")))
}

func (c localCatalog) load(name, version string) (*descriptor, string, error) {
	if name == "" || version == "" || strings.Contains(name, "..") || strings.ContainsAny(version, `/\`) || version == ".." {
		return nil, "", fmt.Errorf("repository: invalid coordinate %s:%s", name, version)
	}
	dir := filepath.Join(c.nameDir(name), version)
	data, err := os.ReadFile(filepath.Join(dir, DescriptorFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", notFound(Artifact{Name: name, Version: version})
		}
		return nil, "", fmt.Errorf("repository: read descriptor for %s:%s: %w", name, version, err)
	}
	var d descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, "", fmt.Errorf("repository: parse descriptor for %s:%s: %w", name, version, err)
	}
	return &d, dir, nil
}

func (c localCatalog) entry(ctx context.Context, a Artifact) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, dir, err := c.load(a.Name, a.Version)
	if err != nil {
		return nil, err
	}
	for _, da := range d.Artifacts {
		if da.Classifier != a.Classifier {
			continue
		}
		file := da.File
		if file != "" && !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		e := &Entry{Artifact: a, File: file}
		for _, dd := range da.Dependencies {
			e.Dependencies = append(e.Dependencies, Dependency{
				Artifact: Artifact{Name: dd.Name, Version: dd.Version, Classifier: dd.Classifier},
				Scope:    Scope(dd.Scope),
				Optional: dd.Optional,
			})
		}
		return e, nil
	}
	return nil, notFound(a)
}

func (c localCatalog) classifiers(ctx context.Context, name, version string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, _, err := c.load(name, version)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(d.Artifacts))
	for _, da := range d.Artifacts {
		out = append(out, da.Classifier)
	}
	sort.Strings(out)
	return out, nil
}

func (c localCatalog) versions(ctx context.Context, name, classifier string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(c.nameDir(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: list versions of %s: %w", name, err)
	}
	var out []string
	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		if _, err := c.entry(ctx, Artifact{Name: name, Version: de.Name(), Classifier: classifier}); err != nil {
			if errors.Is(err, ErrArtifactNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, de.Name())
	}
	return out, nil
}
