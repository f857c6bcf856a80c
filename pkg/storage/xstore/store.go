package xstore

import (
	"fmt"
	"strings"
	"time"
)

// MaxCapacity 单个存储允许的最大条目数。
const MaxCapacity = 1 << 24

// =============================================================================
// 淘汰策略
// =============================================================================

// Policy 淘汰策略。
type Policy string

const (
	// PolicyTinyLFU 基于 ristretto 的 TinyLFU 准入 + SampledLFU 淘汰，默认策略。
	PolicyTinyLFU Policy = "tlfu"

	// PolicyLRU 基于 hashicorp/golang-lru 的最近最少使用淘汰。
	PolicyLRU Policy = "lru"
)

// ParsePolicy 解析策略名（大小写不敏感）。空字符串返回默认策略。
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyTinyLFU, nil
	case PolicyTinyLFU, PolicyLRU:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// EvictReason 条目被引擎移除的原因。
type EvictReason int

const (
	// ReasonCapacity 容量已满被淘汰。
	ReasonCapacity EvictReason = iota + 1
	// ReasonExpired 过期后被 EvictExpired 清理。
	ReasonExpired
	// ReasonRejected 写入时被准入策略拒绝（仅 tlfu）。
	ReasonRejected
)

func (r EvictReason) String() string {
	switch r {
	case ReasonCapacity:
		return "capacity"
	case ReasonExpired:
		return "expired"
	case ReasonRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// =============================================================================
// Store 接口
// =============================================================================

// Store 是带过期时间的有界键值存储。
//
// 所有方法并发安全，锁由各引擎自身持有。过期采用两种方式：
// Get 惰性判断（过期条目视为未命中），EvictExpired 主动清理。
// 已过期但尚未清理的条目仍计入 Len。
//
// 关闭后 Get 返回未命中，Delete 返回 false，Len 返回 0，
// 写入和 EvictExpired 返回 ErrClosed。Close 幂等。
type Store[V any] interface {
	// Get 获取值。不存在、已过期或已关闭时返回零值和 false。
	Get(key string) (V, bool)

	// Set 写入无 TTL 的值，条目只会因容量被淘汰。
	Set(key string, value V) error

	// SetWithTTL 写入值，过期时间为调用时刻加 ttl。ttl <= 0 返回 ErrInvalidTTL。
	SetWithTTL(key string, value V, ttl time.Duration) error

	// SetAt 以绝对时间写入。零值表示无 TTL，不晚于当前时间返回 ErrInvalidTTL。
	SetAt(key string, value V, expireAt time.Time) error

	// Delete 删除 key，返回 key 是否存在。
	Delete(key string) bool

	// EvictExpired 清理过期时间不晚于 now 的条目，返回清理数量。
	EvictExpired(now time.Time) (int, error)

	// Clear 清空所有条目。
	Clear()

	// Len 返回当前条目数。
	Len() int

	// Capacity 返回容量上限。
	Capacity() int

	// Policy 返回淘汰策略。
	Policy() Policy

	// Close 释放引擎资源（tlfu 引擎的后台 goroutine）。
	Close() error
}

// New 按策略创建存储。
//
// capacity 不在 (0, MaxCapacity] 范围内返回 ErrInvalidCapacity，
// 未知策略返回 ErrUnknownPolicy。
func New[V any](capacity int, opts ...Option) (Store[V], error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	switch o.policy {
	case PolicyTinyLFU:
		s, err := newTLFU[V](capacity, o)
		if err != nil {
			return nil, fmt.Errorf("xstore: create tlfu engine: %w", err)
		}
		return s, nil
	case PolicyLRU:
		s, err := newLRU[V](capacity, o)
		if err != nil {
			return nil, fmt.Errorf("xstore: create lru engine: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, o.policy)
	}
}

// Deadline 将相对 TTL 换算为绝对过期时间。ttl <= 0 返回 ErrInvalidTTL。
func Deadline(now time.Time, ttl time.Duration) (time.Time, error) {
	if ttl <= 0 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	return now.Add(ttl), nil
}

// checkExpireAt 校验绝对过期时间，零值合法（无 TTL）。
func checkExpireAt(now, expireAt time.Time) error {
	if !expireAt.IsZero() && !expireAt.After(now) {
		return fmt.Errorf("%w: expire at %s is not after now", ErrInvalidTTL, expireAt.Format(time.RFC3339Nano))
	}
	return nil
}

// notify 在锁外触发淘汰回调。
func (o *options) notify(keys []string, reason EvictReason) {
	if o.onEvict == nil {
		return
	}
	for _, k := range keys {
		o.onEvict(k, reason)
	}
}
