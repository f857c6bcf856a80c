package xflight

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func newGroup(t *testing.T) *Group[int] {
	t.Helper()
	g, err := New[int]()
	require.NoError(t, err)
	return g
}

// waitWaiters 等待 key 上挂满 n 个等待者。
func waitWaiters(t *testing.T, g *Group[int], key string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return g.Waiters(key) == n }, waitFor, time.Millisecond)
}

func recv(t *testing.T, ch <-chan Result[int]) Result[int] {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for result")
		return Result[int]{}
	}
}

func TestNewInvalidShardCount(t *testing.T) {
	for _, n := range []int{0, -1, 3, MaxShards * 2} {
		_, err := New[int](WithShardCount(n))
		assert.ErrorIs(t, err, ErrInvalidShardCount, "n=%d", n)
	}
	g, err := New[int](WithShardCount(1), nil)
	require.NoError(t, err)
	assert.Len(t, g.shards, 1)
}

func TestDoSingleFlight(t *testing.T) {
	g := newGroup(t)
	const n = 50

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	fn := func() (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return 42, nil
	}

	results := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = g.Do("k", fn)
	}()
	<-started

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = g.Do("k", fn)
		}()
	}
	waitWaiters(t, g, "k", n-1)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range n {
		assert.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
	assert.Zero(t, g.InFlight())
}

func TestNoPoisonedKey(t *testing.T) {
	g := newGroup(t)
	boom := errors.New("boom")

	var calls atomic.Int32
	_, err := g.Do("k", func() (int, error) {
		calls.Add(1)
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, g.InFlight())
	assert.Empty(t, g.Keys())

	v, err := g.Do("k", func() (int, error) {
		calls.Add(1)
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNoHangOnFailure(t *testing.T) {
	g := newGroup(t)
	boom := errors.New("boom")
	release := make(chan struct{})

	ctx := context.Background()
	owner := g.DoChan(ctx, "k", func(context.Context) (int, error) {
		<-release
		return 0, boom
	})

	const n = 20
	chans := make([]<-chan Result[int], 0, n)
	for range n {
		chans = append(chans, g.DoChan(ctx, "k", func(context.Context) (int, error) {
			t.Error("loser must not compute")
			return 0, nil
		}))
	}

	var blockingErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, blockingErr = g.Do("k", func() (int, error) { return 0, nil })
	}()

	waitWaiters(t, g, "k", n+2)
	close(release)

	first := recv(t, owner)
	require.ErrorIs(t, first.Err, boom)
	assert.True(t, first.Shared)
	for _, ch := range chans {
		r := recv(t, ch)
		// 所有等待者收到同一个错误值。
		assert.Equal(t, first.Err, r.Err)
	}
	<-done
	assert.ErrorIs(t, blockingErr, boom)
	assert.Zero(t, g.InFlight())
}

func TestCrossPopulation(t *testing.T) {
	t.Run("blocking owner", func(t *testing.T) {
		g := newGroup(t)
		var calls atomic.Int32
		release := make(chan struct{})
		started := make(chan struct{})

		var blockingVal int
		done := make(chan struct{})
		go func() {
			defer close(done)
			blockingVal, _ = g.Do("k", func() (int, error) {
				calls.Add(1)
				close(started)
				<-release
				return 1, nil
			})
		}()
		<-started

		ch := g.DoChan(context.Background(), "k", func(context.Context) (int, error) {
			calls.Add(1)
			return 2, nil
		})
		waitWaiters(t, g, "k", 1)
		close(release)

		r := recv(t, ch)
		<-done
		assert.Equal(t, 1, r.Val)
		assert.True(t, r.Shared)
		assert.Equal(t, 1, blockingVal)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("cooperative owner", func(t *testing.T) {
		g := newGroup(t)
		var calls atomic.Int32
		release := make(chan struct{})

		ch := g.DoChan(context.Background(), "k", func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 1, nil
		})

		var blockingVal int
		done := make(chan struct{})
		go func() {
			defer close(done)
			blockingVal, _ = g.Do("k", func() (int, error) {
				calls.Add(1)
				return 2, nil
			})
		}()
		waitWaiters(t, g, "k", 2)
		close(release)

		assert.Equal(t, 1, recv(t, ch).Val)
		<-done
		assert.Equal(t, 1, blockingVal)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestWaiterCancellation(t *testing.T) {
	g := newGroup(t)
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := g.Do("k", func() (int, error) {
			close(started)
			<-release
			return 9, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 9, v)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := g.DoChan(ctx, "k", func(context.Context) (int, error) { return 0, nil })
	stay := g.DoChan(context.Background(), "k", func(context.Context) (int, error) { return 0, nil })
	waitWaiters(t, g, "k", 2)

	cancel()
	r := recv(t, cancelled)
	assert.ErrorIs(t, r.Err, context.Canceled)
	waitWaiters(t, g, "k", 1)

	close(release)
	assert.Equal(t, 9, recv(t, stay).Val)
	<-done
}

func TestOwnerCancellationStillPublishes(t *testing.T) {
	g := newGroup(t)
	release := make(chan struct{})
	var fnCtxErr atomic.Value

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "v"))
	owner := g.DoChan(ctx, "k", func(fctx context.Context) (int, error) {
		<-release
		fnCtxErr.Store(fmt.Sprintf("%v %v", fctx.Err(), fctx.Value(ctxKey{})))
		return 5, nil
	})
	other := g.DoChan(context.Background(), "k", func(context.Context) (int, error) { return 0, nil })
	waitWaiters(t, g, "k", 2)

	cancel()
	assert.ErrorIs(t, recv(t, owner).Err, context.Canceled)

	close(release)
	r := recv(t, other)
	require.NoError(t, r.Err)
	assert.Equal(t, 5, r.Val)
	assert.Equal(t, "<nil> v", fnCtxErr.Load())
	require.Eventually(t, func() bool { return g.InFlight() == 0 }, waitFor, time.Millisecond)
}

type ctxKey struct{}

func TestDoContext(t *testing.T) {
	g := newGroup(t)

	v, err := g.DoContext(context.Background(), "k", func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var called bool
	_, err = g.DoContext(ctx, "k", func(context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	//nolint:staticcheck // nil ctx 视为 Background
	v, err = g.DoContext(nil, "k", func(context.Context) (int, error) { return 4, nil })
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

func TestPanicConverted(t *testing.T) {
	g := newGroup(t)
	release := make(chan struct{})

	waiter := make(chan error, 1)
	go func() {
		<-release
		_, err := g.Do("k", func() (int, error) { return 0, nil })
		waiter <- err
	}()

	ch := g.DoChan(context.Background(), "k", func(context.Context) (int, error) {
		close(release)
		assert.Eventually(t, func() bool { return g.Waiters("k") == 2 }, waitFor, time.Millisecond)
		panic("kaboom")
	})

	r := recv(t, ch)
	require.ErrorIs(t, r.Err, ErrComputePanic)
	var pe *PanicError
	require.ErrorAs(t, r.Err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Contains(t, pe.Error(), "kaboom")
	assert.ErrorIs(t, <-waiter, ErrComputePanic)

	v, err := g.Do("k", func() (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestGoexitReleasesWaiters(t *testing.T) {
	g := newGroup(t)
	ch := g.DoChan(context.Background(), "k", func(context.Context) (int, error) {
		runtime.Goexit()
		return 0, nil
	})
	assert.ErrorIs(t, recv(t, ch).Err, ErrComputePanic)
	require.Eventually(t, func() bool { return g.InFlight() == 0 }, waitFor, time.Millisecond)
}

func TestDistinctKeysDoNotBlock(t *testing.T) {
	g := newGroup(t)
	release := make(chan struct{})
	slow := g.DoChan(context.Background(), "slow", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	waitWaiters(t, g, "slow", 1)
	assert.Equal(t, []string{"slow"}, g.Keys())

	v, err := g.Do("fast", func() (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	close(release)
	assert.Equal(t, 1, recv(t, slow).Val)
}
