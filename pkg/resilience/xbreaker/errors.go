package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrOpenState 熔断器处于打开状态。
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下试探请求已满。
	ErrTooManyRequests = gobreaker.ErrTooManyRequests

	// ErrNilBreaker 传入的 Breaker 为 nil。
	ErrNilBreaker = errors.New("xbreaker: nil breaker")

	// ErrNilFunc 传入的操作函数为 nil。
	ErrNilFunc = errors.New("xbreaker: nil func")
)

// BreakerError 包装熔断器拒绝执行的错误。
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	return fmt.Sprintf("xbreaker: %s (%s): %v", e.Name, e.State, e.Err)
}

func (e *BreakerError) Unwrap() error { return e.Err }

// Retryable 恒为 false，熔断期间重试没有意义。
func (e *BreakerError) Retryable() bool { return false }

// IsOpen 判断 err 是否由熔断器拒绝执行产生。
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpenState) || errors.Is(err, ErrTooManyRequests)
}

func wrapBreakerError(err error, name string, state State) error {
	if err == nil || !IsOpen(err) {
		return err
	}
	return &BreakerError{Err: err, Name: name, State: state}
}
