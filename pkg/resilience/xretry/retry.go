package xretry

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Retryer 重试执行器，组合尝试次数、退避策略和重试判定。
// 创建后只读，可并发使用。
type Retryer struct {
	attempts int
	backoff  BackoffPolicy
	retryIf  func(error) bool
	onRetry  func(attempt int, err error)
}

// Option Retryer 配置选项。
type Option func(*Retryer)

// WithAttempts 设置总尝试次数（含首次），小于 1 忽略。
func WithAttempts(n int) Option {
	return func(r *Retryer) {
		if n >= 1 {
			r.attempts = n
		}
	}
}

// WithBackoff 设置退避策略，nil 忽略。
func WithBackoff(p BackoffPolicy) Option {
	return func(r *Retryer) {
		if p != nil {
			r.backoff = p
		}
	}
}

// WithRetryIf 追加重试判定，与默认的 IsRetryable 同时生效。
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retryer) {
		r.retryIf = fn
	}
}

// WithOnRetry 设置每次失败后、等待前的回调，attempt 从 1 开始。
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(r *Retryer) {
		r.onRetry = fn
	}
}

// NewRetryer 创建 Retryer，默认尝试 3 次、指数退避。
func NewRetryer(opts ...Option) *Retryer {
	r := &Retryer{
		attempts: 3,
		backoff:  NewExponentialBackoff(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Attempts 返回总尝试次数。
func (r *Retryer) Attempts() int { return r.attempts }

// Do 执行 fn，失败按策略重试，返回最后一次的错误。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult 与 Do 相同，但返回 fn 的结果。
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilRetryer
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return retry.NewWithData[T](r.options(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) options(ctx context.Context) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(r.attempts)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil || !retry.IsRecoverable(err) || !IsRetryable(err) {
				return false
			}
			return r.retryIf == nil || r.retryIf(err)
		}),
		// retry-go v5 的 n 从 1 开始。
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return r.backoff.NextDelay(int(min(n, uint(math.MaxInt32))))
		}),
	}
	if r.onRetry != nil {
		// OnRetry 的 n 从 0 开始。
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			r.onRetry(int(min(n, uint(math.MaxInt32)))+1, err)
		}))
	}
	return opts
}
