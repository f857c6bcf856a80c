package xcache

import (
	"time"

	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/observability/xmetrics"
	"github.com/omeyang/xmemo/pkg/resilience/xbreaker"
	"github.com/omeyang/xmemo/pkg/resilience/xretry"
	"github.com/omeyang/xmemo/pkg/storage/xexpire"
	"github.com/omeyang/xmemo/pkg/storage/xstore"
)

// DefaultName 未设置名称时使用的缓存名，出现在日志和指标中。
const DefaultName = "xcache"

type options struct {
	nolock         bool
	policy         xstore.Policy
	coordinator    *xexpire.Coordinator
	expireInterval time.Duration
	name           string
	logger         xlog.Logger
	observer       xmetrics.Observer
	computeTimeout time.Duration
	defaultTTL     time.Duration
	clock          func() time.Time
	shardCount     int
	retryer        *xretry.Retryer
	breaker        *xbreaker.Breaker
}

// Option 定义缓存的配置选项。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		policy:   xstore.PolicyTinyLFU,
		name:     DefaultName,
		logger:   xlog.Default(),
		observer: xmetrics.NoopObserver{},
		clock:    time.Now,
	}
}

// WithNoLock 关闭并发计算合并。
//
// 开启后 Resolve 在每次未命中时直接计算并写入，不再合并同一 key 的并发计算。
// 仅适用于同一时刻只有一个调用方访问的实例。实例仍会注册到过期协调器。
func WithNoLock(nolock bool) Option {
	return func(o *options) {
		o.nolock = nolock
	}
}

// WithPolicy 设置淘汰策略，默认 xstore.PolicyTinyLFU。
func WithPolicy(p xstore.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithCoordinator 设置过期协调器，默认 xexpire.Default()。nil 忽略。
func WithCoordinator(c *xexpire.Coordinator) Option {
	return func(o *options) {
		if c != nil {
			o.coordinator = c
		}
	}
}

// withExpireInterval 未指定协调器时，创建以 d 为周期的独占协调器，Close 时一并停止。
func withExpireInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.expireInterval = d
		}
	}
}

// WithName 设置缓存名称，空字符串忽略。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置日志记录器，nil 忽略。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置观测器，nil 忽略。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithComputeTimeout 为 ResolveContext/ResolveAsync 的计算设置超时。
// 超时以计算函数的失败形式传给所有等待者。d <= 0 表示不设超时（默认）。
func WithComputeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.computeTimeout = d
		}
	}
}

// WithDefaultTTL 设置 Set 和 ttl 为 0 的 Resolve 使用的默认 TTL。
// 默认 0，即不过期。d < 0 忽略。
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.defaultTTL = d
		}
	}
}

// WithClock 设置存储使用的时钟，主要用于测试。nil 忽略。
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithShardCount 设置计算合并表的分片数，必须是 2 的幂。0 使用默认值。
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shardCount = n
	}
}

// WithRetry 未命中计算失败时按 r 重试。重试只在合并计算的 owner 内进行，
// 等待者收到最后一次尝试的结果。nil 表示不重试（默认）。
func WithRetry(r *xretry.Retryer) Option {
	return func(o *options) {
		o.retryer = r
	}
}

// WithBreaker 用熔断器保护未命中计算。熔断器打开时 Resolve 不调用计算函数，
// 直接返回 *xbreaker.BreakerError。与 WithRetry 同时使用时每次尝试都经过熔断器，
// 熔断错误不会被重试。
func WithBreaker(b *xbreaker.Breaker) Option {
	return func(o *options) {
		o.breaker = b
	}
}
