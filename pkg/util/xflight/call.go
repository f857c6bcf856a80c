package xflight

import (
	"runtime/debug"
	"sync"
)

// call 是一个 key 上正在进行的计算。
// 结果发布后 done 置位，之后不再接受新的等待者。
type call[V any] struct {
	mu      sync.Mutex
	done    bool
	res     Result[V]
	waiters map[waiter[V]]struct{}
	dups    int // 加入本次计算的非 owner 调用方数量
}

func newCall[V any]() *call[V] {
	return &call[V]{waiters: make(map[waiter[V]]struct{})}
}

// join 以非 owner 身份加入。计算已完成时返回 false。
func (c *call[V]) join() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	c.dups++
	return true
}

// attach 挂上等待者。计算已完成时返回 false，调用方应直接读取 result。
func (c *call[V]) attach(w waiter[V]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	c.waiters[w] = struct{}{}
	return true
}

// detach 摘下等待者，返回其是否仍在等待（未被 publish 释放）。
func (c *call[V]) detach(w waiter[V]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.waiters[w]; !ok {
		return false
	}
	delete(c.waiters, w)
	return true
}

func (c *call[V]) result() Result[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res
}

func (c *call[V]) waiterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// publish 写入结果并释放所有等待者，返回最终结果。
func (c *call[V]) publish(r Result[V]) Result[V] {
	c.mu.Lock()
	r.Shared = c.dups > 0
	c.res = r
	c.done = true
	ws := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for w := range ws {
		w.notify(r)
	}
	return r
}

// safeCall 执行 fn，panic 转换为 *PanicError。
func safeCall[V any](fn func() (V, error)) (r Result[V]) {
	defer func() {
		if p := recover(); p != nil {
			r = Result[V]{Err: &PanicError{Value: p, Stack: debug.Stack()}}
		}
	}()
	r.Val, r.Err = fn()
	return r
}
