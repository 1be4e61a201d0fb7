package repository

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory Repository.
type Memory struct {
	catalogRepository
	store *memoryCatalog
}

type memoryCatalog struct {
	mu      sync.RWMutex
	entries map[Artifact]*Entry
}

func NewMemory() *Memory {
	c := &memoryCatalog{entries: make(map[Artifact]*Entry)}
	return &Memory{catalogRepository: catalogRepository{c: c}, store: c}
}

// Add stores an artifact with its file and direct dependencies, replacing any
// previous entry for the same coordinate.
func (m *Memory) Add(a Artifact, file string, deps ...Dependency) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries[a] = &Entry{Artifact: a, File: file, Dependencies: append([]Dependency(nil), deps...)}
}

func (c *memoryCatalog) entry(_ context.Context, a Artifact) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[a]
	if !ok {
		return nil, notFound(a)
	}
	return e, nil
}

func (c *memoryCatalog) classifiers(_ context.Context, name, version string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for a := range c.entries {
		if a.Name == name && a.Version == version {
			out = append(out, a.Classifier)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *memoryCatalog) versions(_ context.Context, name, classifier string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for a := range c.entries {
		if a.Name == name && a.Classifier == classifier {
			out = append(out, a.Version)
		}
	}
	return out, nil
}
