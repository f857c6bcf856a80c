package xstore

import "time"

type options struct {
	policy     Policy
	clock      func() time.Time
	onEvict    func(key string, reason EvictReason)
	evictBatch int
}

// Option 定义存储的配置选项。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		policy: PolicyTinyLFU,
		clock:  time.Now,
	}
}

// WithPolicy 设置淘汰策略，默认 PolicyTinyLFU。
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithClock 设置时钟，用于计算过期时间和惰性过期判断。nil 忽略。
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithOnEvict 设置条目被引擎移除时的回调（容量淘汰、过期清理、准入拒绝）。
// 显式 Delete 和 Clear 不触发回调。
//
// 回调在锁外同步执行，不应阻塞。
func WithOnEvict(fn func(key string, reason EvictReason)) Option {
	return func(o *options) {
		o.onEvict = fn
	}
}

// WithEvictBatch 限制单次 EvictExpired 最多清理的条目数，n <= 0 表示不限。
// 未清理完的过期条目留给下一次调用。
func WithEvictBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.evictBatch = n
		}
	}
}
