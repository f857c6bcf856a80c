package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 是所有 *SignalError 的哨兵，用 errors.Is 判断。
	ErrSignal = errors.New("xrun: received signal")

	// ErrInvalidInterval Ticker 的 interval 不是正数。
	ErrInvalidInterval = errors.New("xrun: interval must be positive")

	// ErrNilFunc 服务函数为 nil。
	ErrNilFunc = errors.New("xrun: nil service func")
)

// SignalError 由 Run 在收到信号后返回，Signal 为收到的信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return ErrSignal.Error() + " <nil>"
	}
	return fmt.Sprintf("%s %s", ErrSignal, e.Signal)
}

func (e *SignalError) Unwrap() error { return ErrSignal }
