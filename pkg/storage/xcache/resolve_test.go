package xcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xmemo/pkg/util/xflight"
)

// 两个 goroutine 同时 Resolve("k")，fn 休眠后返回 42：都得到 42，fn 只执行一次。
func TestResolveTwoCallers(t *testing.T) {
	c, _ := newTestCache[int](t, 10)

	var calls atomic.Int32
	fn := func() (int, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 2)
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := c.Resolve("k", fn, 0)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, []int{42, 42}, results)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveSingleFlightMixedCallers(t *testing.T) {
	const n = 40
	c, _ := newTestCache[string](t, 10)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var (
				v   string
				err error
			)
			if i%2 == 0 {
				v, err = c.Resolve("k", func() (string, error) { return compute(context.Background()) }, time.Minute)
			} else {
				v, err = c.ResolveContext(context.Background(), "k", compute, time.Minute)
			}
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(n), stats.Requests)
	assert.Zero(t, stats.InFlight)
}

func TestResolveFailureSharedAndNotCached(t *testing.T) {
	const n = 10
	c, _ := newTestCache[int](t, 10)

	boom := errors.New("boom")
	var calls atomic.Int32
	gate := make(chan struct{})
	fn := func() (int, error) {
		calls.Add(1)
		<-gate
		return 0, boom
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = c.Resolve("k", fn, 0)
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, time.Millisecond)

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Resolve("k", fn, 0)
		}()
	}
	require.Eventually(t, func() bool { return c.flight.Waiters("k") == n-1 }, 2*time.Second, time.Millisecond)
	close(gate)
	wg.Wait()

	for _, err := range errs {
		assert.Same(t, boom, err)
	}
	assert.Equal(t, int32(1), calls.Load())

	// 失败不缓存，也不残留在合并表中。
	size, err := c.Len()
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Zero(t, c.flight.InFlight())

	v, err := c.Resolve("k", func() (int, error) { return 7, nil }, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestResolveCountsHits(t *testing.T) {
	c, _ := newTestCache[int](t, 10)

	fn := func() (int, error) { return 1, nil }
	_, err := c.Resolve("k", fn, 0)
	require.NoError(t, err)
	_, err = c.Resolve("k", fn, 0)
	require.NoError(t, err)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Requests)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestResolveContextWaiterCancel(t *testing.T) {
	c, _ := newTestCache[int](t, 10)

	release := make(chan struct{})
	started := make(chan struct{})
	fn := func(context.Context) (int, error) {
		close(started)
		<-release
		return 5, nil
	}

	owner := c.ResolveAsync(context.Background(), "k", fn, 0)
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	waiter := c.ResolveAsync(ctx, "k", fn, 0)
	require.Eventually(t, func() bool { return c.flight.Waiters("k") == 2 }, 2*time.Second, time.Millisecond)

	cancel()
	r := <-waiter
	assert.ErrorIs(t, r.Err, context.Canceled)
	assert.Equal(t, 1, c.flight.Waiters("k"))

	close(release)
	r = <-owner
	require.NoError(t, r.Err)
	assert.Equal(t, 5, r.Val)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestResolveContextOwnerCancelStillPublishes(t *testing.T) {
	c, _ := newTestCache[int](t, 10)

	release := make(chan struct{})
	started := make(chan struct{})
	var fnCtxErr atomic.Value
	fn := func(ctx context.Context) (int, error) {
		close(started)
		<-release
		fnCtxErr.Store(ctx.Err() == nil)
		return 9, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	owner := c.ResolveAsync(ctx, "k", fn, 0)
	<-started

	other := c.ResolveAsync(context.Background(), "k", fn, 0)
	cancel()
	r := <-owner
	assert.ErrorIs(t, r.Err, context.Canceled)

	close(release)
	r = <-other
	require.NoError(t, r.Err)
	assert.Equal(t, 9, r.Val)
	assert.Equal(t, true, fnCtxErr.Load())

	require.Eventually(t, func() bool {
		v, ok := c.Get("k")
		return ok && v == 9
	}, 2*time.Second, time.Millisecond)
}

func TestResolveComputeTimeout(t *testing.T) {
	c, _ := newTestCache[int](t, 10, WithComputeTimeout(20*time.Millisecond), WithComputeTimeout(0))

	_, err := c.ResolveContext(context.Background(), "k", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestResolvePanic(t *testing.T) {
	for _, nolock := range []bool{false, true} {
		c, _ := newTestCache[int](t, 10, WithNoLock(nolock))

		_, err := c.Resolve("k", func() (int, error) { panic("bad") }, 0)
		assert.ErrorIs(t, err, xflight.ErrComputePanic)

		_, err = c.ResolveContext(context.Background(), "k", func(context.Context) (int, error) { panic("bad") }, 0)
		assert.ErrorIs(t, err, xflight.ErrComputePanic)

		var pe *xflight.PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "bad", pe.Value)
	}
}

func TestResolveNoLock(t *testing.T) {
	c, coord := newTestCache[int](t, 10, WithNoLock(true))
	assert.Nil(t, c.flight)
	assert.Equal(t, 1, coord.Len())

	var calls atomic.Int32
	fn := func() (int, error) {
		calls.Add(1)
		return 3, nil
	}
	v, err := c.Resolve("k", fn, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	v, err = c.Resolve("k", fn, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, int32(1), calls.Load())

	r := <-c.ResolveAsync(context.Background(), "k2", func(context.Context) (int, error) { return 4, nil }, 0)
	require.NoError(t, r.Err)
	assert.Equal(t, 4, r.Val)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.InFlight)
	assert.Equal(t, 2, stats.Len)
}

func TestResolveArgumentErrors(t *testing.T) {
	c, _ := newTestCache[int](t, 10)
	fn := func() (int, error) { return 1, nil }
	cfn := func(context.Context) (int, error) { return 1, nil }

	_, err := c.Resolve("k", nil, 0)
	assert.ErrorIs(t, err, ErrNilCompute)
	_, err = c.ResolveContext(context.Background(), "k", nil, 0)
	assert.ErrorIs(t, err, ErrNilCompute)

	_, err = c.Resolve("k", fn, -time.Second)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	_, err = c.ResolveContext(context.Background(), "k", cfn, -time.Second)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.ResolveContext(ctx, "k", cfn, 0)
	assert.ErrorIs(t, err, context.Canceled)

	//nolint:staticcheck // nil ctx 按 Background 处理
	v, err := c.ResolveContext(nil, "k", cfn, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, c.Close())
	_, err = c.Resolve("k", fn, 0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.ResolveContext(context.Background(), "k", cfn, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestResolveTTL(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestCache[int](t, 10, WithClock(clock.Now), WithDefaultTTL(time.Minute))

	fn := func() (int, error) { return 1, nil }
	_, err := c.Resolve("default", fn, 0)
	require.NoError(t, err)
	_, err = c.Resolve("explicit", fn, time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, ok := c.Get("default")
	assert.False(t, ok)
	_, ok = c.Get("explicit")
	assert.True(t, ok)
}

func TestResolveCloseDuringCompute(t *testing.T) {
	c, _ := newTestCache[int](t, 10)

	started := make(chan struct{})
	release := make(chan struct{})
	ch := c.ResolveAsync(context.Background(), "k", func(context.Context) (int, error) {
		close(started)
		<-release
		return 11, nil
	}, 0)

	<-started
	require.NoError(t, c.Close())
	close(release)

	r := <-ch
	require.NoError(t, r.Err)
	assert.Equal(t, 11, r.Val)
}

func TestResolveObserved(t *testing.T) {
	obs := &countingObserver{}
	c, _ := newTestCache[int](t, 10, WithObserver(obs))

	fn := func() (int, error) { return 1, nil }
	for range 3 {
		_, err := c.Resolve("k", fn, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), obs.count(metricCompute))
}
