package xcache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/omeyang/xmemo/internal/storageopt"
	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/observability/xmetrics"
	"github.com/omeyang/xmemo/pkg/storage/xexpire"
	"github.com/omeyang/xmemo/pkg/storage/xstore"
	"github.com/omeyang/xmemo/pkg/util/xflight"
)

const (
	componentName = "xcache"
	metricEvicted = "xmemo.cache.evicted"
	metricCompute = "xmemo.cache.compute"
	metricClosed  = "xmemo.cache.closed_access"
)

// Stats 缓存统计快照，不可变。
type Stats struct {
	Requests uint64
	Hits     uint64
	Misses   uint64
	// HitRate = Hits / Requests，无请求时为 0。
	HitRate float64

	Len      int
	Capacity int
	Policy   xstore.Policy
	// InFlight 正在进行的合并计算数，nolock 模式下恒为 0。
	InFlight int
}

// Cache 进程内缓存。
//
// 组合三部分：带过期时间的存储（xstore）、按 key 合并并发计算的 xflight.Group，
// 以及进程级过期协调器（xexpire）。创建时注册到协调器，Close 时注销并释放存储。
//
// Get 总是计入请求数，命中时计入命中数；未命中不会触发计算，
// 只有 Resolve 系列方法会计算。关闭后除 Close 外的操作返回 ErrClosed，
// Get 返回未命中。
type Cache[V any] struct {
	store  xstore.Store[V]
	flight *xflight.Group[V] // nolock 模式为 nil
	stats  storageopt.RequestCounter
	handle *xexpire.Handle
	opts   *options
	closed atomic.Bool

	// ownCoord 协调器由本实例创建，Close 时停止。
	ownCoord bool
}

// New 创建容量为 capacity 的缓存并注册到过期协调器。
//
// capacity 非正返回 ErrInvalidCapacity，未知策略返回 xstore.ErrUnknownPolicy。
func New[V any](capacity int, opts ...Option) (*Cache[V], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	c := &Cache[V]{opts: o}
	switch {
	case o.coordinator != nil:
	case o.expireInterval > 0:
		o.coordinator = xexpire.NewCoordinator(
			xexpire.WithInterval(o.expireInterval),
			xexpire.WithLogger(o.logger),
			xexpire.WithObserver(o.observer),
		)
		c.ownCoord = true
	default:
		o.coordinator = xexpire.Default()
	}

	store, err := xstore.New[V](capacity,
		xstore.WithPolicy(o.policy),
		xstore.WithClock(o.clock),
		xstore.WithOnEvict(c.onEvict),
	)
	if err != nil {
		return nil, err
	}
	c.store = store

	if !o.nolock {
		var flightOpts []xflight.Option
		if o.shardCount != 0 {
			flightOpts = append(flightOpts, xflight.WithShardCount(o.shardCount))
		}
		g, err := xflight.New[V](flightOpts...)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		c.flight = g
	}

	h, err := o.coordinator.Register(o.name, c)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("xcache: register with coordinator: %w", err)
	}
	c.handle = h

	o.logger.Debug(context.Background(), "cache created",
		xlog.Cache(o.name),
		xlog.Count(int64(capacity)),
	)
	return c, nil
}

// onEvict 记录容量淘汰、过期清理和准入拒绝。
func (c *Cache[V]) onEvict(_ string, reason xstore.EvictReason) {
	xmetrics.Count(context.Background(), c.opts.observer, metricEvicted, 1,
		xmetrics.Cache(c.opts.name),
		xmetrics.Reason(reason.String()),
	)
}

// =============================================================================
// 基本操作
// =============================================================================

// Get 获取 key 对应的值。关闭后返回零值和 false，不计入命中统计；
// 这次访问以 Debug 日志和 xmemo.cache.closed_access 计数记录，需要错误时用 GetE。
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok, err := c.GetE(key)
	if err != nil {
		c.closedAccess(key, err)
	}
	return v, ok
}

func (c *Cache[V]) closedAccess(key string, err error) {
	ctx := context.Background()
	c.opts.logger.Debug(ctx, "get on closed cache",
		xlog.Cache(c.opts.name),
		xlog.CacheKey(key),
		xlog.Err(err),
	)
	xmetrics.Count(ctx, c.opts.observer, metricClosed, 1, xmetrics.Cache(c.opts.name))
}

// GetE 与 Get 相同，但关闭后返回 ErrClosed。
func (c *Cache[V]) GetE(key string) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, ErrClosed
	}
	v, ok := c.store.Get(key)
	c.stats.Record(ok)
	return v, ok, nil
}

// GetOr 获取值，未命中或已关闭时返回 fallback。
func (c *Cache[V]) GetOr(key string, fallback V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	return fallback
}

// Set 写入值，使用默认 TTL（WithDefaultTTL，默认不过期）。
func (c *Cache[V]) Set(key string, value V) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return mapStoreErr(c.put(key, value, c.opts.defaultTTL))
}

// SetWithTTL 写入值，ttl 后过期。ttl <= 0 返回 ErrInvalidTTL，值不写入。
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return mapStoreErr(c.store.SetWithTTL(key, value, ttl))
}

// put 按 ttl 写入存储，ttl 为 0 表示不过期。
func (c *Cache[V]) put(key string, value V, ttl time.Duration) error {
	if ttl > 0 {
		return c.store.SetWithTTL(key, value, ttl)
	}
	return c.store.Set(key, value)
}

// Delete 删除 key，返回 key 是否存在。
func (c *Cache[V]) Delete(key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	return c.store.Delete(key), nil
}

// Clear 清空所有条目，统计计数保留。
func (c *Cache[V]) Clear() error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.store.Clear()
	return nil
}

// Len 返回条目数。已过期但尚未清理的条目仍计入。
func (c *Cache[V]) Len() (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.store.Len(), nil
}

// Stats 返回统计快照。
func (c *Cache[V]) Stats() (Stats, error) {
	if c.closed.Load() {
		return Stats{}, ErrClosed
	}
	snap := c.stats.Snapshot()
	s := Stats{
		Requests: snap.Requests,
		Hits:     snap.Hits,
		Misses:   snap.Misses(),
		HitRate:  snap.HitRate(),
		Len:      c.store.Len(),
		Capacity: c.store.Capacity(),
		Policy:   c.store.Policy(),
	}
	if c.flight != nil {
		s.InFlight = c.flight.InFlight()
	}
	return s, nil
}

// Name 返回缓存名称。
func (c *Cache[V]) Name() string { return c.opts.name }

// Capacity 返回容量。
func (c *Cache[V]) Capacity() int { return c.store.Capacity() }

// Closed 报告缓存是否已关闭。
func (c *Cache[V]) Closed() bool { return c.closed.Load() }

// EvictExpired 清理过期时间不晚于 now 的条目，实现 xexpire.Evicter。
// 关闭后为空操作。
func (c *Cache[V]) EvictExpired(now time.Time) (int, error) {
	if c.closed.Load() {
		return 0, nil
	}
	n, err := c.store.EvictExpired(now)
	if errors.Is(err, xstore.ErrClosed) {
		return n, nil
	}
	return n, err
}

// Close 从过期协调器注销并释放存储。幂等，重复调用返回 nil。
//
// 正在进行的计算不会被中断，其结果仍交给等待者，但不再写入存储。
func (c *Cache[V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.opts.coordinator.Deregister(c.handle)
	if c.ownCoord {
		c.opts.coordinator.Stop()
	}
	err := c.store.Close()
	c.opts.logger.Debug(context.Background(), "cache closed", xlog.Cache(c.opts.name))
	return err
}
