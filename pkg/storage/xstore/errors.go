package xstore

import "errors"

var (
	// ErrInvalidCapacity 表示容量不在 (0, MaxCapacity] 范围内。
	ErrInvalidCapacity = errors.New("xstore: capacity must be positive and not exceed max")

	// ErrInvalidTTL 表示 TTL 非正，或绝对过期时间不晚于当前时间。
	// 条目不会被写入。
	ErrInvalidTTL = errors.New("xstore: ttl must be positive")

	// ErrUnknownPolicy 表示未知的淘汰策略。
	ErrUnknownPolicy = errors.New("xstore: unknown eviction policy")

	// ErrClosed 表示存储已关闭。
	ErrClosed = errors.New("xstore: store closed")
)
