package xretry

import "errors"

var (
	// ErrNilRetryer 传入的 Retryer 为 nil。
	ErrNilRetryer = errors.New("xretry: nil retryer")

	// ErrNilFunc 传入的操作函数为 nil。
	ErrNilFunc = errors.New("xretry: nil func")
)

// RetryableError 可声明自身是否可重试的错误。
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 不应重试的错误。
type PermanentError struct {
	Err error
}

// Permanent 将 err 标记为不可重试，nil 返回 nil。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Retryable 恒为 false。
func (e *PermanentError) Retryable() bool { return false }

// IsRetryable 判断 err 是否可重试：nil 不可重试；实现 RetryableError 的按其声明；
// 其余默认可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}
