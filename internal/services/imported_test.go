package services

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/lock"
)

type greeter interface{ Greet() string }

type english struct{ name string }

func (e *english) Greet() string { return "hello " + e.name }

type french struct{ name string }

func (f *french) Greet() string { return "bonjour " + f.name }

func newStartedAddon(t *testing.T, r *addons.Registry, coord string) *addons.Addon {
	t.Helper()
	ctx := context.Background()
	a, err := r.AddAddon(ctx, addons.MustParseID(coord))
	require.NoError(t, err)
	require.NoError(t, r.SetStatus(ctx, a.ID(), addons.StatusStarted))
	return a
}

func TestImported_Unsatisfied(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(lock.New())
	imp := Import[greeter](r)

	assert.True(t, imp.IsUnsatisfied(ctx))
	assert.False(t, imp.IsAmbiguous(ctx))

	_, err := imp.Get(ctx)
	require.ErrorIs(t, err, ErrNoSuchService)
	var nse *NoSuchServiceError
	require.ErrorAs(t, err, &nse)
	assert.Contains(t, nse.TypeName, "services.greeter")
}

func TestImported_SkipsAddonsNotStarted(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	a, err := r.AddAddon(ctx, addons.MustParseID("test:en:1.0"))
	require.NoError(t, err)
	a.ServiceRegistry().ExportValue(&english{name: "a"})

	imp := Import[greeter](r)
	for _, s := range []addons.Status{addons.StatusNotStarted, addons.StatusStarting, addons.StatusStopping, addons.StatusStopped, addons.StatusFailed} {
		require.NoError(t, r.SetStatus(ctx, a.ID(), s))
		assert.True(t, imp.IsUnsatisfied(ctx), s.String())
	}

	require.NoError(t, r.SetStatus(ctx, a.ID(), addons.StatusStarted))
	g, err := imp.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello a", g.Greet())
}

func TestImported_AmbiguousThenSelectExact(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	newStartedAddon(t, r, "test:en:1.0").ServiceRegistry().ExportValue(&english{name: "en"})

	imp := Import[greeter](r)
	g, err := imp.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello en", g.Greet())

	newStartedAddon(t, r, "test:fr:1.0").ServiceRegistry().ExportValue(&french{name: "fr"})

	assert.True(t, imp.IsAmbiguous(ctx))
	assert.False(t, imp.IsUnsatisfied(ctx))
	_, err = imp.Get(ctx)
	require.ErrorIs(t, err, ErrAmbiguousService)
	var ase *AmbiguousServiceError
	require.ErrorAs(t, err, &ase)
	assert.Len(t, ase.Matches, 2)

	g, err = imp.SelectExact(ctx, reflect.TypeOf(&french{}))
	require.NoError(t, err)
	assert.Equal(t, "bonjour fr", g.Greet())

	_, err = imp.SelectExact(ctx, reflect.TypeOf(english{}))
	require.ErrorIs(t, err, ErrNoSuchService)
}

func TestImported_IterateIdempotentAndSinglePass(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	en := &english{name: "en"}
	fr := &french{name: "fr"}
	newStartedAddon(t, r, "test:en:1.0").ServiceRegistry().ExportValue(en)
	newStartedAddon(t, r, "test:fr:1.0").ServiceRegistry().ExportValue(fr)

	imp := Import[greeter](r)
	collect := func(seq func(func(greeter) bool)) []greeter {
		var out []greeter
		for g := range seq {
			out = append(out, g)
		}
		return out
	}

	seq := imp.Iterate(ctx)
	first := collect(seq)
	second := collect(imp.Iterate(ctx))
	assert.ElementsMatch(t, []greeter{en, fr}, first)
	assert.ElementsMatch(t, first, second)

	assert.Empty(t, collect(seq), "a returned sequence is consumed once")
}

func TestImported_IterateStopsEarly(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	newStartedAddon(t, r, "test:en:1.0").ServiceRegistry().ExportValue(&english{})
	newStartedAddon(t, r, "test:fr:1.0").ServiceRegistry().ExportValue(&french{})

	imp := Import[greeter](r)
	n := 0
	for range imp.Iterate(ctx) {
		n++
		break
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, imp.handles.len())
}

func TestImported_DeduplicatesSameExportedInstance(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	a := newStartedAddon(t, r, "test:en:1.0")
	inst := addons.Singleton(a, &english{})
	a.ServiceRegistry().Export(inst)
	a.ServiceRegistry().Export(inst)

	imp := Import[greeter](r)
	assert.False(t, imp.IsAmbiguous(ctx))
	_, err := imp.Get(ctx)
	require.NoError(t, err)
}

func TestImported_ReleaseNotifiesSource(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	a := newStartedAddon(t, r, "test:en:1.0")

	var mu sync.Mutex
	var released []greeter
	a.ServiceRegistry().Export(addons.Factory(a, reflect.TypeOf(&english{}),
		func() any { return &english{name: "fresh"} },
		func(v any) {
			mu.Lock()
			defer mu.Unlock()
			released = append(released, v.(greeter))
		},
	))

	imp := Import[greeter](r)
	g1, err := imp.Get(ctx)
	require.NoError(t, err)
	g2, err := imp.Get(ctx)
	require.NoError(t, err)
	require.NotSame(t, g1, g2)
	assert.Equal(t, 2, imp.handles.len())

	imp.Release(g1)
	imp.Release(g1)
	imp.Release(&english{name: "stranger"})

	assert.Equal(t, []greeter{g1}, released)
	assert.Equal(t, 1, imp.handles.len())

	imp.Release(g2)
	assert.Equal(t, 0, imp.handles.len())
}

func TestImported_StaleInstanceSurvivesStop(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	a := newStartedAddon(t, r, "test:en:1.0")
	a.ServiceRegistry().ExportValue(&english{name: "en"})

	imp := Import[greeter](r)
	g, err := imp.Get(ctx)
	require.NoError(t, err)

	require.NoError(t, r.SetStatus(ctx, a.ID(), addons.StatusStopped))
	assert.Equal(t, "hello en", g.Greet())
	assert.True(t, imp.IsUnsatisfied(ctx))
	imp.Release(g)
}

func TestImportByName(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	a := newStartedAddon(t, r, "test:en:1.0")
	a.ServiceRegistry().ExportValue(&english{name: "en"}, addons.TypeOf[greeter]())

	imp := ImportByName(r, addons.TypeName(addons.TypeOf[greeter]()))
	v, err := imp.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello en", v.(greeter).Greet())

	missing := ImportByName(r, "example.com/nope.Service")
	assert.True(t, missing.IsUnsatisfied(ctx))
	assert.Equal(t, "[]", missing.String())
}

func TestImported_UsableInsideRegistryLock(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	newStartedAddon(t, r, "test:en:1.0").ServiceRegistry().ExportValue(&english{})

	imp := Import[greeter](r)
	err := r.LockManager().PerformLocked(ctx, lock.Write, func(ctx context.Context) error {
		_, err := imp.Get(ctx)
		return err
	})
	require.NoError(t, err)
}

func TestImported_StringInsideWriteLock(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	newStartedAddon(t, r, "test:en:1.0").ServiceRegistry().ExportValue(&english{})

	imp := Import[greeter](r)
	assert.Equal(t, "[]", imp.String())

	done := make(chan string, 1)
	go func() {
		_ = r.LockManager().PerformLocked(ctx, lock.Write, func(ctx context.Context) error {
			_, err := imp.Get(ctx)
			assert.NoError(t, err)
			done <- fmt.Sprintf("%v", imp)
			return nil
		})
	}()

	select {
	case s := <-done:
		assert.Contains(t, s, "from addon test:en:1.0")
	case <-time.After(5 * time.Second):
		t.Fatal("formatting the locator inside a write lock did not return")
	}
}

// Two addons are toggled together inside one write-locked section. A snapshot must
// see both or neither, never one.
func TestImported_SnapshotsAreConsistentUnderToggling(t *testing.T) {
	ctx := context.Background()
	r := addons.NewRegistry(nil)
	en := newStartedAddon(t, r, "test:en:1.0")
	fr := newStartedAddon(t, r, "test:fr:1.0")
	en.ServiceRegistry().ExportValue(&english{})
	fr.ServiceRegistry().ExportValue(&french{})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		status := addons.StatusStopped
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = r.LockManager().PerformLocked(ctx, lock.Write, func(ctx context.Context) error {
				if err := r.SetStatus(ctx, en.ID(), status); err != nil {
					return err
				}
				return r.SetStatus(ctx, fr.ID(), status)
			})
			if status == addons.StatusStopped {
				status = addons.StatusStarted
			} else {
				status = addons.StatusStopped
			}
		}
	}()

	var readers sync.WaitGroup
	for w := 0; w < 4; w++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			imp := Import[greeter](r)
			for i := 0; i < 200; i++ {
				n := 0
				for g := range imp.Iterate(ctx) {
					n++
					imp.Release(g)
				}
				assert.Contains(t, []int{0, 2}, n)
			}
		}()
	}
	readers.Wait()
	close(stop)
	wg.Wait()
}
