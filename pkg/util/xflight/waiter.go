package xflight

import (
	"context"
	"sync"
	"sync/atomic"
)

// waiter 是挂在一次计算上的等待者。
// 两种实现共用同一张 in-flight 表：阻塞式调用方等待条件变量，
// 协作式调用方等待 channel。
type waiter[V any] interface {
	// notify 投递结果，只有第一次调用生效，不得阻塞。
	notify(Result[V])
}

// =============================================================================
// 阻塞式等待者
// =============================================================================

type blockingWaiter[V any] struct {
	mu   sync.Mutex
	cond *sync.Cond
	done bool
	res  Result[V]
}

func newBlockingWaiter[V any]() *blockingWaiter[V] {
	w := &blockingWaiter[V]{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *blockingWaiter[V]) notify(r Result[V]) {
	w.mu.Lock()
	if !w.done {
		w.res = r
		w.done = true
	}
	w.mu.Unlock()
	w.cond.Broadcast()
}

func (w *blockingWaiter[V]) wait() Result[V] {
	w.mu.Lock()
	defer w.mu.Unlock()
	for !w.done {
		w.cond.Wait()
	}
	return w.res
}

// =============================================================================
// channel 等待者
// =============================================================================

type chanWaiter[V any] struct {
	ch        chan Result[V] // 容量 1，notify 永不阻塞
	delivered atomic.Bool
	stop      atomic.Pointer[func() bool]
}

func newChanWaiter[V any]() *chanWaiter[V] {
	return &chanWaiter[V]{ch: make(chan Result[V], 1)}
}

func (w *chanWaiter[V]) notify(r Result[V]) {
	if !w.delivered.CompareAndSwap(false, true) {
		return
	}
	w.ch <- r
	if stop := w.stop.Load(); stop != nil {
		(*stop)()
	}
}

// watch 在 ctx 取消时执行 onCancel。结果投递后注销监听。
func (w *chanWaiter[V]) watch(ctx context.Context, onCancel func()) {
	if ctx.Done() == nil {
		return
	}
	stop := context.AfterFunc(ctx, onCancel)
	w.stop.Store(&stop)
	if w.delivered.Load() {
		stop()
	}
}
