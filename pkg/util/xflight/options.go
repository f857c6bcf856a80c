package xflight

import (
	"fmt"
	"math/bits"
)

// DefaultShards 默认分片数，MaxShards 为上限。
const (
	DefaultShards = 32
	MaxShards     = 1 << 16
)

// Option 配置 Group。
type Option func(*config)

type config struct {
	shards int
}

// WithShardCount 设置分片数，须为 2 的幂且不超过 MaxShards，否则 New 返回
// ErrInvalidShardCount。key 按 xxhash 取模分片，分片越多锁竞争越少。
func WithShardCount(n int) Option {
	return func(c *config) { c.shards = n }
}

func buildConfig(opts []Option) (config, error) {
	c := config{shards: DefaultShards}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.shards < 1 || c.shards > MaxShards || bits.OnesCount(uint(c.shards)) != 1 {
		return c, fmt.Errorf("%w: %d is not a power of two in [1, %d]", ErrInvalidShardCount, c.shards, MaxShards)
	}
	return c, nil
}
