package xstore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// lruStore 基于 simplelru 的 LRU 引擎。
//
// simplelru 非并发安全，由 mu 同时保护 LRU 链表和过期索引，
// 容量淘汰由本引擎显式执行（RemoveOldest），以便区分淘汰原因。
type lruStore[V any] struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, entry[V]]
	index    *expiryIndex
	capacity int
	opts     *options
	closed   atomic.Bool
}

var _ Store[int] = (*lruStore[int])(nil)

func newLRU[V any](capacity int, o *options) (*lruStore[V], error) {
	// 不注册淘汰回调：simplelru 在 Remove/Purge 时也会回调，无法区分原因。
	l, err := simplelru.NewLRU[string, entry[V]](capacity, nil)
	if err != nil {
		return nil, err
	}
	return &lruStore[V]{
		lru:      l,
		index:    newExpiryIndex(),
		capacity: capacity,
		opts:     o,
	}, nil
}

func (s *lruStore[V]) Get(key string) (V, bool) {
	var zero V
	if s.closed.Load() {
		return zero, false
	}
	now := s.opts.clock()

	s.mu.Lock()
	e, ok := s.lru.Get(key)
	s.mu.Unlock()

	if !ok || e.expired(now) {
		return zero, false
	}
	return e.value, true
}

func (s *lruStore[V]) Set(key string, value V) error {
	return s.setAt(key, value, time.Time{})
}

func (s *lruStore[V]) SetWithTTL(key string, value V, ttl time.Duration) error {
	expireAt, err := Deadline(s.opts.clock(), ttl)
	if err != nil {
		return err
	}
	return s.setAt(key, value, expireAt)
}

func (s *lruStore[V]) SetAt(key string, value V, expireAt time.Time) error {
	if err := checkExpireAt(s.opts.clock(), expireAt); err != nil {
		return err
	}
	return s.setAt(key, value, expireAt)
}

func (s *lruStore[V]) setAt(key string, value V, expireAt time.Time) error {
	if s.closed.Load() {
		return ErrClosed
	}

	var evicted []string
	s.mu.Lock()
	if !s.lru.Contains(key) {
		for s.lru.Len() >= s.capacity {
			k, _, ok := s.lru.RemoveOldest()
			if !ok {
				break
			}
			s.index.remove(k, 0)
			evicted = append(evicted, k)
		}
	}
	gen := s.index.put(key, expireAt)
	s.lru.Add(key, entry[V]{key: key, value: value, gen: gen, expireAt: expireAt})
	s.mu.Unlock()

	s.opts.notify(evicted, ReasonCapacity)
	return nil
}

func (s *lruStore[V]) Delete(key string) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.remove(key, 0)
	return s.lru.Remove(key)
}

func (s *lruStore[V]) EvictExpired(now time.Time) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	s.mu.Lock()
	due := s.index.popExpired(now, s.opts.evictBatch)
	keys := make([]string, 0, len(due))
	for _, it := range due {
		if s.lru.Remove(it.key) {
			keys = append(keys, it.key)
		}
	}
	s.mu.Unlock()

	s.opts.notify(keys, ReasonExpired)
	return len(keys), nil
}

func (s *lruStore[V]) Clear() {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	s.lru.Purge()
	s.index.reset()
	s.mu.Unlock()
}

func (s *lruStore[V]) Len() int {
	if s.closed.Load() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *lruStore[V]) Capacity() int  { return s.capacity }
func (s *lruStore[V]) Policy() Policy { return PolicyLRU }

func (s *lruStore[V]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	s.lru.Purge()
	s.index.reset()
	s.mu.Unlock()
	return nil
}
