package xcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/observability/xmetrics"
	"github.com/omeyang/xmemo/pkg/storage/xexpire"
	"github.com/omeyang/xmemo/pkg/storage/xstore"
)

var policies = []xstore.Policy{xstore.PolicyTinyLFU, xstore.PolicyLRU}

// newTestCoordinator 返回不自动触发的协调器，测试用 TickNow 驱动。
func newTestCoordinator(t testing.TB) *xexpire.Coordinator {
	t.Helper()
	coord := xexpire.NewCoordinator(
		xexpire.WithInterval(time.Hour),
		xexpire.WithLogger(xlog.Discard()),
	)
	t.Cleanup(coord.Stop)
	return coord
}

func newTestCache[V any](t testing.TB, capacity int, opts ...Option) (*Cache[V], *xexpire.Coordinator) {
	t.Helper()
	coord := newTestCoordinator(t)
	base := []Option{WithCoordinator(coord), WithLogger(xlog.Discard())}
	c, err := New[V](capacity, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, coord
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingObserver 只记录 Count，span 走空实现。
type countingObserver struct {
	xmetrics.NoopObserver

	mu     sync.Mutex
	counts map[string]int64
	spans  int
}

func (o *countingObserver) Start(ctx context.Context, opts xmetrics.SpanOptions) (context.Context, xmetrics.Span) {
	o.mu.Lock()
	o.spans++
	o.mu.Unlock()
	return o.NoopObserver.Start(ctx, opts)
}

func (o *countingObserver) Count(_ context.Context, name string, n int64, _ ...xmetrics.Attr) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int64{}
	}
	o.counts[name] += n
}

func (o *countingObserver) count(name string) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[name]
}
