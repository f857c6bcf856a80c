package xstore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	// tlfuCountersPerItem 频率计数器数量与容量的比例，ristretto 建议 10 倍。
	tlfuCountersPerItem = 10
	tlfuBufferItems     = 64
)

// tlfuStore 基于 ristretto 的 TinyLFU 引擎。
//
// ristretto 不提供条目计数和按时间遍历，引擎在旁维护过期索引：
// 写入前登记，OnEvict/OnReject 回调按版本号注销。每个条目 cost 为 1，
// MaxCost 即容量。
//
// ristretto 写入是异步的，Set 之后调用 Wait 保证同一调用方读到自己的写入。
//
// 锁顺序为 wmu -> mu。修改类操作持 wmu 完成"改索引 + 提交 ristretto"，
// ristretto 按写缓冲顺序应用，写入在释放 wmu 前 Wait 到已应用，因此索引与缓存内容一致。
// 回调只取 mu：
// Del 在写缓冲满时会阻塞到处理协程腾出空间，Clear 在调用方协程内同步触发 OnEvict，
// 两者都不能在持有 mu 时调用。
type tlfuStore[V any] struct {
	cache    *ristretto.Cache[string, entry[V]]
	wmu      sync.Mutex // 串行化修改类操作
	mu       sync.Mutex // 保护 index
	index    *expiryIndex
	capacity int
	opts     *options
	closed   atomic.Bool
}

var _ Store[int] = (*tlfuStore[int])(nil)

func newTLFU[V any](capacity int, o *options) (*tlfuStore[V], error) {
	s := &tlfuStore[V]{
		index:    newExpiryIndex(),
		capacity: capacity,
		opts:     o,
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, entry[V]]{
		NumCounters:        int64(capacity) * tlfuCountersPerItem,
		MaxCost:            int64(capacity),
		BufferItems:        tlfuBufferItems,
		IgnoreInternalCost: true,
		OnEvict: func(item *ristretto.Item[entry[V]]) {
			s.dropped(item.Value, ReasonCapacity)
		},
		OnReject: func(item *ristretto.Item[entry[V]]) {
			s.dropped(item.Value, ReasonRejected)
		},
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// dropped 处理 ristretto 回调，只有版本仍匹配时才注销并通知。
func (s *tlfuStore[V]) dropped(e entry[V], reason EvictReason) {
	s.mu.Lock()
	removed := s.index.remove(e.key, e.gen)
	s.mu.Unlock()
	if removed {
		s.opts.notify([]string{e.key}, reason)
	}
}

func (s *tlfuStore[V]) Get(key string) (V, bool) {
	var zero V
	if s.closed.Load() {
		return zero, false
	}
	e, ok := s.cache.Get(key)
	if !ok || e.expired(s.opts.clock()) {
		return zero, false
	}
	return e.value, true
}

func (s *tlfuStore[V]) Set(key string, value V) error {
	return s.setAt(key, value, time.Time{})
}

func (s *tlfuStore[V]) SetWithTTL(key string, value V, ttl time.Duration) error {
	expireAt, err := Deadline(s.opts.clock(), ttl)
	if err != nil {
		return err
	}
	return s.setAt(key, value, expireAt)
}

func (s *tlfuStore[V]) SetAt(key string, value V, expireAt time.Time) error {
	if err := checkExpireAt(s.opts.clock(), expireAt); err != nil {
		return err
	}
	return s.setAt(key, value, expireAt)
}

func (s *tlfuStore[V]) setAt(key string, value V, expireAt time.Time) error {
	s.wmu.Lock()
	if s.closed.Load() {
		s.wmu.Unlock()
		return ErrClosed
	}
	s.mu.Lock()
	gen := s.index.put(key, expireAt)
	s.mu.Unlock()

	if !s.cache.Set(key, entry[V]{key: key, value: value, gen: gen, expireAt: expireAt}, 1) {
		// 写缓冲已满被丢弃。
		s.mu.Lock()
		s.index.remove(key, gen)
		s.mu.Unlock()
		s.wmu.Unlock()
		s.opts.notify([]string{key}, ReasonRejected)
		return nil
	}
	// Wait 同样在 wmu 内：Close 关闭写缓冲与 Wait 的发送不能交错。
	s.cache.Wait()
	s.wmu.Unlock()
	return nil
}

func (s *tlfuStore[V]) Delete(key string) bool {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	existed := s.index.remove(key, 0)
	s.mu.Unlock()
	s.cache.Del(key)
	return existed
}

func (s *tlfuStore[V]) EvictExpired(now time.Time) (int, error) {
	s.wmu.Lock()
	if s.closed.Load() {
		s.wmu.Unlock()
		return 0, ErrClosed
	}
	s.mu.Lock()
	due := s.index.popExpired(now, s.opts.evictBatch)
	s.mu.Unlock()

	// 持有 wmu 时索引中的版本就是最新写入，对应的值可能还在写缓冲里，
	// Del 排在它之后应用，不能先 Get 判断。
	keys := make([]string, 0, len(due))
	for _, it := range due {
		s.cache.Del(it.key)
		keys = append(keys, it.key)
	}
	s.wmu.Unlock()

	s.opts.notify(keys, ReasonExpired)
	return len(keys), nil
}

func (s *tlfuStore[V]) Clear() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed.Load() {
		return
	}
	// 先清空索引：Clear 对每个条目触发的 OnEvict 找不到版本，不会计为容量淘汰。
	s.mu.Lock()
	s.index.reset()
	s.mu.Unlock()
	s.cache.Clear()
}

func (s *tlfuStore[V]) Len() int {
	if s.closed.Load() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.len()
}

func (s *tlfuStore[V]) Capacity() int  { return s.capacity }
func (s *tlfuStore[V]) Policy() Policy { return PolicyTinyLFU }

func (s *tlfuStore[V]) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cache.Close()
	s.mu.Lock()
	s.index.reset()
	s.mu.Unlock()
	return nil
}
