package xflight

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Result 是一次计算的结果。
type Result[V any] struct {
	Val V
	Err error

	// Shared 表示结果被多个调用方共享。
	Shared bool
}

// Group 按 key 合并并发计算：同一时刻每个 key 至多一个计算在执行，
// 所有并发请求者得到同一个结果（成功或失败）。
//
// 阻塞式调用（Do）和协作式调用（DoContext/DoChan）共用同一张表，
// 两类调用方请求同一个 key 时同样只会触发一次计算。
//
// 结果不被缓存：计算完成后条目立即移除，下一次调用重新计算。
// 零值不可用，必须通过 [New] 创建。
type Group[V any] struct {
	shards []shard[V]
	mask   uint64
}

type shard[V any] struct {
	mu    sync.Mutex
	calls map[string]*call[V]
}

// New 创建 Group。分片数无效时返回 ErrInvalidShardCount。
func New[V any](opts ...Option) (*Group[V], error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	shards := make([]shard[V], cfg.shards)
	for i := range shards {
		shards[i].calls = make(map[string]*call[V])
	}
	return &Group[V]{
		shards: shards,
		mask:   uint64(cfg.shards - 1),
	}, nil
}

func (g *Group[V]) getShard(key string) *shard[V] {
	return &g.shards[xxhash.Sum64String(key)&g.mask]
}

// acquire 查找 key 上未完成的计算并加入；没有则创建，调用方成为 owner。
// 已发布结果但尚未移除的条目视为不存在。
func (g *Group[V]) acquire(key string) (c *call[V], owner bool) {
	s := g.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.calls[key]; ok && c.join() {
		return c, false
	}
	c = newCall[V]()
	s.calls[key] = c
	return c, true
}

// forget 移除条目，仅当表中仍是同一个 call 时生效。
func (g *Group[V]) forget(key string, c *call[V]) {
	s := g.getShard(key)
	s.mu.Lock()
	if s.calls[key] == c {
		delete(s.calls, key)
	}
	s.mu.Unlock()
}

// execute 由 owner 运行计算。
// 顺序：发布结果 → 释放等待者 → 移除条目。失败和 panic 同样走完这三步。
func (g *Group[V]) execute(key string, c *call[V], fn func() (V, error)) (r Result[V]) {
	r.Err = errGoexit
	defer func() {
		r = c.publish(r)
		g.forget(key, c)
	}()
	r = safeCall(fn)
	return r
}

// Do 执行并合并 key 上的计算，阻塞直到结果可用。
//
// owner 在当前 goroutine 中运行 fn；其他调用方阻塞等待 owner 发布结果。
// fn 返回的错误原样传给所有等待者，fn 的 panic 转为包装 ErrComputePanic 的错误。
func (g *Group[V]) Do(key string, fn func() (V, error)) (V, error) {
	c, owner := g.acquire(key)
	if owner {
		r := g.execute(key, c, fn)
		return r.Val, r.Err
	}

	w := newBlockingWaiter[V]()
	if !c.attach(w) {
		r := c.result()
		return r.Val, r.Err
	}
	r := w.wait()
	return r.Val, r.Err
}

// DoContext 是 Do 的协作式版本，等待期间可被 ctx 取消。
//
// ctx 取消只让当前调用方返回 ctx.Err()，不影响计算本身和其他等待者。
// 即使 owner 被取消，已开始的计算仍会完成并把结果发布给其他等待者。
// fn 收到的 context 保留 ctx 的值但不随 ctx 取消。
func (g *Group[V]) DoContext(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	r := <-g.DoChan(ctx, key, fn)
	return r.Val, r.Err
}

// DoChan 与 DoContext 相同，但立即返回一个 channel，结果就绪或 ctx 取消时送达。
// channel 恰好收到一个值，容量为 1，调用方不读取也不会造成泄漏。
func (g *Group[V]) DoChan(ctx context.Context, key string, fn func(context.Context) (V, error)) <-chan Result[V] {
	if ctx == nil {
		ctx = context.Background()
	}

	w := newChanWaiter[V]()
	if err := ctx.Err(); err != nil {
		w.notify(Result[V]{Err: err})
		return w.ch
	}

	c, owner := g.acquire(key)
	if !c.attach(w) {
		w.notify(c.result())
		return w.ch
	}
	w.watch(ctx, func() {
		if c.detach(w) {
			w.notify(Result[V]{Err: ctx.Err()})
		}
	})

	if owner {
		detached := context.WithoutCancel(ctx)
		go g.execute(key, c, func() (V, error) { return fn(detached) })
	}
	return w.ch
}

// InFlight 返回正在进行的计算数量（瞬时快照）。
func (g *Group[V]) InFlight() int {
	n := 0
	for i := range g.shards {
		s := &g.shards[i]
		s.mu.Lock()
		n += len(s.calls)
		s.mu.Unlock()
	}
	return n
}

// Keys 返回正在计算的 key 列表，仅用于调试。
// 返回值是快照，不保证跨分片原子性。
func (g *Group[V]) Keys() []string {
	var keys []string
	for i := range g.shards {
		s := &g.shards[i]
		s.mu.Lock()
		for k := range s.calls {
			keys = append(keys, k)
		}
		s.mu.Unlock()
	}
	return keys
}

// Waiters 返回挂在 key 当前计算上的等待者数量。
// 阻塞式 owner 不计入；协作式 owner 自身也是等待者。
func (g *Group[V]) Waiters(key string) int {
	s := g.getShard(key)
	s.mu.Lock()
	c, ok := s.calls[key]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return c.waiterCount()
}
