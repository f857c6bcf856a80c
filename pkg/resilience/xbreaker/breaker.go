package xbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State 熔断器状态。
type State = gobreaker.State

// Counts 当前统计窗口内的计数。
type Counts = gobreaker.Counts

// 熔断器状态常量。
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Breaker 熔断器。
type Breaker struct {
	name          string
	threshold     uint32
	timeout       time.Duration
	interval      time.Duration
	maxRequests   uint32
	isSuccessful  func(error) bool
	onStateChange func(name string, from, to State)

	cb *gobreaker.CircuitBreaker[any]
}

// Option 熔断器配置选项。
type Option func(*Breaker)

// WithFailureThreshold 连续失败 n 次后打开，默认 5，0 忽略。
func WithFailureThreshold(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithTimeout 打开后经过 d 进入半开状态，默认 60s，d <= 0 忽略。
func WithTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithInterval 关闭状态下每隔 d 清零计数，默认 0（不清零）。
func WithInterval(d time.Duration) Option {
	return func(b *Breaker) {
		if d >= 0 {
			b.interval = d
		}
	}
}

// WithMaxRequests 半开状态允许的试探请求数，默认 1，0 忽略。
func WithMaxRequests(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithSuccessFunc 自定义成功判定。默认 err == nil 或 ctx 取消类错误视为成功。
func WithSuccessFunc(fn func(error) bool) Option {
	return func(b *Breaker) {
		if fn != nil {
			b.isSuccessful = fn
		}
	}
}

// WithOnStateChange 状态变化回调。
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// NewBreaker 创建熔断器。
func NewBreaker(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:         name,
		threshold:    5,
		timeout:      60 * time.Second,
		maxRequests:  1,
		isSuccessful: defaultSuccess,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	st := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.maxRequests,
		Interval:    b.interval,
		Timeout:     b.timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= b.threshold
		},
		IsSuccessful: b.isSuccessful,
	}
	if b.onStateChange != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			b.onStateChange(name, from, to)
		}
	}
	b.cb = gobreaker.NewCircuitBreaker[any](st)
	return b
}

// 调用方放弃等待不代表后端故障。
func defaultSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// Name 返回名称。
func (b *Breaker) Name() string { return b.name }

// State 返回当前状态。
func (b *Breaker) State() State { return b.cb.State() }

// Counts 返回当前计数。
func (b *Breaker) Counts() Counts { return b.cb.Counts() }

// Execute 在熔断器保护下执行 fn。ctx 已结束时直接返回 ctx.Err()；
// 熔断器拒绝时返回 *BreakerError（errors.Is(err, ErrOpenState) 成立）。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return zero, ErrNilBreaker
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
	}

	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, wrapBreakerError(err, b.name, b.State())
	}
	v, _ := res.(T)
	return v, nil
}
