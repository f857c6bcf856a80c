package xexpire

import (
	"errors"
	"fmt"
)

var (
	// ErrTickFailed 表示某个实例在一轮清理中失败。
	// 失败被隔离：不影响同一轮的其他实例，实例保持注册。
	ErrTickFailed = errors.New("xexpire: eviction tick failed")

	// ErrEvictPanic 表示实例的 EvictExpired 发生了 panic。
	ErrEvictPanic = errors.New("xexpire: evicter panicked")

	// ErrNilEvicter 表示注册的 Evicter 为 nil。
	ErrNilEvicter = errors.New("xexpire: nil evicter")
)

// TickError 描述一个实例在一轮清理中的失败。
// errors.Is 同时匹配 ErrTickFailed 和 Cause。
type TickError struct {
	Name  string
	ID    string
	Cause error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("xexpire: evict %q (%s): %v", e.Name, e.ID, e.Cause)
}

func (e *TickError) Unwrap() []error {
	return []error{ErrTickFailed, e.Cause}
}
