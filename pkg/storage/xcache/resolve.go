package xcache

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/observability/xmetrics"
	"github.com/omeyang/xmemo/pkg/resilience/xbreaker"
	"github.com/omeyang/xmemo/pkg/resilience/xretry"
	"github.com/omeyang/xmemo/pkg/storage/xstore"
	"github.com/omeyang/xmemo/pkg/util/xflight"
)

// =============================================================================
// Resolve：未命中时计算并写入
// =============================================================================

// Resolve 返回 key 对应的值，未命中时调用 fn 计算，成功后以 ttl 写入缓存。
//
// 命中时与 Get 一样计数并立即返回。未命中时同一 key 的并发调用只有一个执行 fn，
// 其余调用阻塞等待并收到同一结果（成功或失败）。失败不写入缓存，下一次调用重新计算。
// fn 的 panic 转为包装 xflight.ErrComputePanic 的错误。
//
// ttl 为 0 使用默认 TTL（WithDefaultTTL），ttl < 0 返回 ErrInvalidTTL。
func (c *Cache[V]) Resolve(key string, fn func() (V, error), ttl time.Duration) (V, error) {
	var zero V
	if fn == nil {
		return zero, ErrNilCompute
	}
	ttl, err := c.precheck(ttl)
	if err != nil {
		return zero, err
	}
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	compute := func() (V, error) {
		return c.populate(context.Background(), key, ttl, func(context.Context) (V, error) {
			return fn()
		})
	}
	if c.flight == nil {
		return safeCompute(compute)
	}
	return c.flight.Do(key, compute)
}

// ResolveContext 是 Resolve 的协作式版本，等待期间可被 ctx 取消。
//
// ctx 取消只让当前调用方返回 ctx.Err()。已开始的计算不会因任一调用方取消而中断，
// 结果仍发布给其他等待者并写入缓存。fn 收到的 context 保留 ctx 的值，
// 不随 ctx 取消，但受 WithComputeTimeout 约束。
//
// ResolveContext 与 Resolve 共用同一张合并表：两者并发请求同一个 key 时只计算一次。
func (c *Cache[V]) ResolveContext(ctx context.Context, key string, fn func(context.Context) (V, error), ttl time.Duration) (V, error) {
	r := <-c.ResolveAsync(ctx, key, fn, ttl)
	return r.Val, r.Err
}

// ResolveAsync 与 ResolveContext 相同，但立即返回一个容量为 1 的 channel，
// 结果就绪或 ctx 取消时恰好送达一个值。
func (c *Cache[V]) ResolveAsync(ctx context.Context, key string, fn func(context.Context) (V, error), ttl time.Duration) <-chan xflight.Result[V] {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan xflight.Result[V], 1)
	ready := func(r xflight.Result[V]) <-chan xflight.Result[V] {
		ch <- r
		return ch
	}

	if fn == nil {
		return ready(xflight.Result[V]{Err: ErrNilCompute})
	}
	ttl, err := c.precheck(ttl)
	if err != nil {
		return ready(xflight.Result[V]{Err: err})
	}
	if err := ctx.Err(); err != nil {
		return ready(xflight.Result[V]{Err: err})
	}
	if v, ok := c.lookup(key); ok {
		return ready(xflight.Result[V]{Val: v})
	}

	compute := func(ctx context.Context) (V, error) {
		return c.populate(ctx, key, ttl, fn)
	}
	if c.flight != nil {
		return c.flight.DoChan(ctx, key, compute)
	}

	// nolock：没有其他等待者共享计算，调用方的取消直接传给 fn。
	go func() {
		v, err := safeCompute(func() (V, error) { return compute(ctx) })
		ch <- xflight.Result[V]{Val: v, Err: err}
	}()
	return ch
}

// precheck 校验状态和 ttl，返回生效的 ttl。
func (c *Cache[V]) precheck(ttl time.Duration) (time.Duration, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if ttl < 0 {
		return 0, ErrInvalidTTL
	}
	if ttl == 0 {
		return c.opts.defaultTTL, nil
	}
	return ttl, nil
}

// lookup 查询存储并计数。
func (c *Cache[V]) lookup(key string) (V, bool) {
	v, ok := c.store.Get(key)
	c.stats.Record(ok)
	return v, ok
}

// populate 由计算的 owner 执行：复查存储，计算，成功后写入。
func (c *Cache[V]) populate(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (V, error)) (v V, err error) {
	// 上一轮计算可能在本次查询之后、成为 owner 之前完成写入。复查不计数。
	if c.flight != nil {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
	}

	if c.opts.computeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.computeTimeout)
		defer cancel()
	}

	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "resolve",
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.Cache(c.opts.name)},
	})
	defer func() { span.End(xmetrics.Result{Err: err}) }()
	xmetrics.Count(ctx, c.opts.observer, metricCompute, 1, xmetrics.Cache(c.opts.name))

	v, err = c.compute(ctx, fn)
	if err != nil || c.closed.Load() {
		return v, err
	}
	if serr := c.put(key, v, ttl); serr != nil && !errors.Is(serr, xstore.ErrClosed) {
		c.opts.logger.Warn(ctx, "store computed value failed",
			xlog.Cache(c.opts.name),
			xlog.CacheKey(key),
			xlog.Err(serr),
		)
	}
	return v, nil
}

// compute 按配置依次套上熔断和重试后调用 fn。
func (c *Cache[V]) compute(ctx context.Context, fn func(context.Context) (V, error)) (V, error) {
	call := fn
	if b := c.opts.breaker; b != nil {
		call = func(ctx context.Context) (V, error) {
			return xbreaker.Execute(ctx, b, func() (V, error) { return fn(ctx) })
		}
	}
	if r := c.opts.retryer; r != nil {
		return xretry.DoWithResult(ctx, r, call)
	}
	return call(ctx)
}

// safeCompute 把 panic 转为 *xflight.PanicError，与合并模式的行为一致。
func safeCompute[V any](fn func() (V, error)) (v V, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero V
			v, err = zero, &xflight.PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return fn()
}
