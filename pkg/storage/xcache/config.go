package xcache

import (
	"fmt"
	"time"

	"github.com/omeyang/xmemo/pkg/config/xconf"
	"github.com/omeyang/xmemo/pkg/resilience/xbreaker"
	"github.com/omeyang/xmemo/pkg/resilience/xretry"
	"github.com/omeyang/xmemo/pkg/storage/xstore"
)

// Config 缓存的文件配置。
//
//	cache:
//	  capacity: 10000
//	  policy: lru
//	  default_ttl: 5m
//	  expire_interval: 1s
//	  retry:
//	    attempts: 3
//	    initial_delay: 50ms
//	  breaker:
//	    failures: 5
//	    timeout: 30s
type Config struct {
	Capacity       int           `koanf:"capacity"`
	Policy         string        `koanf:"policy"`
	NoLock         bool          `koanf:"nolock"`
	Name           string        `koanf:"name"`
	DefaultTTL     time.Duration `koanf:"default_ttl"`
	ComputeTimeout time.Duration `koanf:"compute_timeout"`

	// ExpireInterval 非零时缓存使用独占的过期协调器，Close 时一并停止。
	// 为零时使用进程级协调器。
	ExpireInterval time.Duration `koanf:"expire_interval"`

	Retry   RetryConfig   `koanf:"retry"`
	Breaker BreakerConfig `koanf:"breaker"`
}

// RetryConfig 未命中计算的重试配置，Attempts <= 1 表示不重试。
type RetryConfig struct {
	Attempts     int           `koanf:"attempts"`
	InitialDelay time.Duration `koanf:"initial_delay"`
	MaxDelay     time.Duration `koanf:"max_delay"`
}

// BreakerConfig 未命中计算的熔断配置，Failures 为 0 表示不启用。
type BreakerConfig struct {
	Failures uint32        `koanf:"failures"`
	Timeout  time.Duration `koanf:"timeout"`
}

// LoadConfig 从 cfg 的 path 节点读取缓存配置并校验。
func LoadConfig(cfg xconf.Config, path string) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	var c Config
	if err := cfg.Unmarshal(path, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate 校验配置。
func (c Config) Validate() error {
	if c.Capacity <= 0 || c.Capacity > xstore.MaxCapacity {
		return fmt.Errorf("%w: capacity %d", ErrInvalidConfig, c.Capacity)
	}
	if _, err := xstore.ParsePolicy(c.Policy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.DefaultTTL < 0 || c.ComputeTimeout < 0 || c.ExpireInterval < 0 ||
		c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 || c.Breaker.Timeout < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	if c.Retry.Attempts < 0 {
		return fmt.Errorf("%w: retry attempts %d", ErrInvalidConfig, c.Retry.Attempts)
	}
	return nil
}

// NewFromConfig 按配置创建缓存。opts 在配置之后应用，可以覆盖配置项。
func NewFromConfig[V any](cfg Config, opts ...Option) (*Cache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, _ := xstore.ParsePolicy(cfg.Policy)

	base := []Option{
		WithPolicy(policy),
		WithNoLock(cfg.NoLock),
		WithName(cfg.Name),
		WithDefaultTTL(cfg.DefaultTTL),
		WithComputeTimeout(cfg.ComputeTimeout),
		withExpireInterval(cfg.ExpireInterval),
	}
	if cfg.Retry.Attempts > 1 {
		base = append(base, WithRetry(xretry.NewRetryer(
			xretry.WithAttempts(cfg.Retry.Attempts),
			xretry.WithBackoff(xretry.NewExponentialBackoff(
				xretry.WithInitialDelay(cfg.Retry.InitialDelay),
				xretry.WithMaxDelay(cfg.Retry.MaxDelay),
			)),
		)))
	}
	if cfg.Breaker.Failures > 0 {
		name := cfg.Name
		if name == "" {
			name = DefaultName
		}
		base = append(base, WithBreaker(xbreaker.NewBreaker(name,
			xbreaker.WithFailureThreshold(cfg.Breaker.Failures),
			xbreaker.WithTimeout(cfg.Breaker.Timeout),
		)))
	}
	return New[V](cfg.Capacity, append(base, opts...)...)
}
