package storageopt

import "sync/atomic"

// =============================================================================
// 请求统计
// =============================================================================

// RequestCounter 缓存请求计数器。
// 计数只增不减，零值可用，并发安全。
type RequestCounter struct {
	requests atomic.Uint64
	hits     atomic.Uint64
}

// IncRequest 增加请求计数。
func (c *RequestCounter) IncRequest() {
	c.requests.Add(1)
}

// IncHit 增加命中计数。
func (c *RequestCounter) IncHit() {
	c.hits.Add(1)
}

// Record 记录一次请求，hit 为 true 时同时记录命中。
func (c *RequestCounter) Record(hit bool) {
	c.requests.Add(1)
	if hit {
		c.hits.Add(1)
	}
}

// Snapshot 返回当前计数的快照。
//
// 先读命中再读请求，保证快照中 Hits <= Requests。
func (c *RequestCounter) Snapshot() Snapshot {
	hits := c.hits.Load()
	return Snapshot{Requests: c.requests.Load(), Hits: hits}
}

// Snapshot 请求计数的时间点快照，不可变。
type Snapshot struct {
	Requests uint64
	Hits     uint64
}

// Misses 返回未命中次数。
func (s Snapshot) Misses() uint64 {
	if s.Hits >= s.Requests {
		return 0
	}
	return s.Requests - s.Hits
}

// HitRate 返回命中率，无请求时为 0。
func (s Snapshot) HitRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Requests)
}

// =============================================================================
// 过期清理统计
// =============================================================================

// EvictionCounter 过期清理计数器。
type EvictionCounter struct {
	ticks    atomic.Uint64
	evicted  atomic.Uint64
	failures atomic.Uint64
}

// IncTick 增加清理轮次计数。
func (e *EvictionCounter) IncTick() {
	e.ticks.Add(1)
}

// AddEvicted 累加清理条目数，n <= 0 时忽略。
func (e *EvictionCounter) AddEvicted(n int) {
	if n > 0 {
		e.evicted.Add(uint64(n))
	}
}

// IncFailure 增加清理失败计数。
func (e *EvictionCounter) IncFailure() {
	e.failures.Add(1)
}

// Ticks 返回清理轮次。
func (e *EvictionCounter) Ticks() uint64 { return e.ticks.Load() }

// Evicted 返回累计清理条目数。
func (e *EvictionCounter) Evicted() uint64 { return e.evicted.Load() }

// Failures 返回累计失败次数。
func (e *EvictionCounter) Failures() uint64 { return e.failures.Load() }
