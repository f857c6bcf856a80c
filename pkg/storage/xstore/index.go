package xstore

import (
	"container/heap"
	"time"
)

// entry 是引擎中实际保存的值。
// key 和 gen 随值一起保存，供引擎回调反查过期索引。
type entry[V any] struct {
	key      string
	value    V
	gen      uint64
	expireAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// =============================================================================
// 过期索引
// =============================================================================

type indexItem struct {
	key      string
	gen      uint64
	expireAt time.Time
	pos      int // 在 deadlineHeap 中的下标，-1 表示不在堆中（无 TTL）
}

// expiryIndex 记录引擎中每个 key 的最新版本，以及按过期时间排序的最小堆。
// 非并发安全，由引擎持锁访问。
type expiryIndex struct {
	items map[string]*indexItem
	heap  deadlineHeap
	gen   uint64
}

func newExpiryIndex() *expiryIndex {
	return &expiryIndex{items: make(map[string]*indexItem)}
}

// put 记录 key 的新版本并返回版本号。expireAt 为零值表示无 TTL。
func (x *expiryIndex) put(key string, expireAt time.Time) uint64 {
	x.gen++
	it, ok := x.items[key]
	if !ok {
		it = &indexItem{key: key, pos: -1}
		x.items[key] = it
	}
	it.gen = x.gen
	it.expireAt = expireAt

	switch {
	case expireAt.IsZero() && it.pos >= 0:
		heap.Remove(&x.heap, it.pos)
	case !expireAt.IsZero() && it.pos >= 0:
		heap.Fix(&x.heap, it.pos)
	case !expireAt.IsZero():
		heap.Push(&x.heap, it)
	}
	return it.gen
}

// remove 删除 key。gen 非 0 时只有版本匹配才删除，避免旧版本的回调删掉新写入。
func (x *expiryIndex) remove(key string, gen uint64) bool {
	it, ok := x.items[key]
	if !ok || (gen != 0 && it.gen != gen) {
		return false
	}
	delete(x.items, key)
	if it.pos >= 0 {
		heap.Remove(&x.heap, it.pos)
	}
	return true
}

// popExpired 弹出过期时间不晚于 now 的条目，按过期时间升序。limit <= 0 表示不限。
func (x *expiryIndex) popExpired(now time.Time, limit int) []indexItem {
	var due []indexItem
	for x.heap.Len() > 0 {
		if limit > 0 && len(due) >= limit {
			break
		}
		top := x.heap[0]
		if top.expireAt.After(now) {
			break
		}
		heap.Pop(&x.heap)
		delete(x.items, top.key)
		due = append(due, *top)
	}
	return due
}

func (x *expiryIndex) len() int { return len(x.items) }

func (x *expiryIndex) reset() {
	x.items = make(map[string]*indexItem)
	x.heap = nil
}

// deadlineHeap 实现 heap.Interface，按 expireAt 升序。
type deadlineHeap []*indexItem

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].expireAt.Before(h[j].expireAt) }

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}

func (h *deadlineHeap) Push(x any) {
	it := x.(*indexItem)
	it.pos = len(*h)
	*h = append(*h, it)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.pos = -1
	*h = old[:n-1]
	return it
}
