package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformLocked_Reentrant(t *testing.T) {
	m := New()
	ctx := context.Background()

	calls := 0
	err := m.PerformLocked(ctx, Write, func(ctx context.Context) error {
		calls++
		return m.PerformLocked(ctx, Read, func(ctx context.Context) error {
			calls++
			mode, ok := m.Held(ctx)
			assert.True(t, ok)
			assert.Equal(t, Write, mode)
			return m.PerformLocked(ctx, Write, func(context.Context) error {
				calls++
				return nil
			})
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPerformLocked_UpgradeRejected(t *testing.T) {
	m := New()
	err := m.PerformLocked(context.Background(), Read, func(ctx context.Context) error {
		return m.PerformLocked(ctx, Write, func(context.Context) error {
			t.Fatal("write section must not run under a read lock")
			return nil
		})
	})
	require.ErrorIs(t, err, ErrLockUpgrade)
}

func TestPerformLocked_ReadersShare(t *testing.T) {
	m := New()
	var inside atomic.Int32
	var peak atomic.Int32
	var wg sync.WaitGroup
	release := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.PerformLocked(context.Background(), Read, func(context.Context) error {
				n := inside.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				<-release
				inside.Add(-1)
				return nil
			})
		}()
	}

	require.Eventually(t, func() bool { return peak.Load() == 4 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
}

func TestPerformLocked_WriterExcludesReaders(t *testing.T) {
	m := New()
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = m.PerformLocked(context.Background(), Write, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	go func() {
		_ = m.PerformLocked(context.Background(), Read, func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("reader entered while writer held the lock")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-done
}

func TestLocked_ReturnsValue(t *testing.T) {
	m := New()
	v, err := Locked(context.Background(), m, Read, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPerformLocked_ReleasesOnPanic(t *testing.T) {
	m := New()
	func() {
		defer func() { _ = recover() }()
		_ = m.PerformLocked(context.Background(), Write, func(context.Context) error {
			panic("boom")
		})
	}()
	require.NoError(t, m.PerformLocked(context.Background(), Write, func(context.Context) error { return nil }))
}

func TestAfterUnlock_RunsOnceOutermostReleases(t *testing.T) {
	m := New()
	ctx := context.Background()
	var order []string

	m.AfterUnlock(ctx, func() { order = append(order, "unlocked") })
	err := m.PerformLocked(ctx, Write, func(ctx context.Context) error {
		return m.PerformLocked(ctx, Read, func(ctx context.Context) error {
			m.AfterUnlock(ctx, func() {
				if assert.True(t, m.mu.TryLock(), "callback ran under the lock") {
					m.mu.Unlock()
				}
				order = append(order, "first")
			})
			m.AfterUnlock(ctx, func() { order = append(order, "second") })
			order = append(order, "locked")
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"unlocked", "locked", "first", "second"}, order)
}

func TestAfterUnlock_RunsWhenLockedFunctionFails(t *testing.T) {
	m := New()
	boom := errors.New("boom")
	ran := false

	err := m.PerformLocked(context.Background(), Write, func(ctx context.Context) error {
		m.AfterUnlock(ctx, func() { ran = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, ran)
}

func TestAfterUnlock_EscapedContextRunsImmediately(t *testing.T) {
	m := New()
	var escaped context.Context
	require.NoError(t, m.PerformLocked(context.Background(), Read, func(ctx context.Context) error {
		escaped = ctx
		return nil
	}))

	ran := false
	m.AfterUnlock(escaped, func() { ran = true })
	assert.True(t, ran)
}
