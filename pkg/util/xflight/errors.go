package xflight

import (
	"errors"
	"fmt"
)

var (
	// ErrComputePanic 表示计算函数发生了 panic。
	// panic 被 recover 后转换为 *PanicError，所有等待者收到同一个错误。
	ErrComputePanic = errors.New("xflight: compute function panicked")

	// ErrInvalidShardCount 表示分片数无效。
	ErrInvalidShardCount = errors.New("xflight: invalid shard count")

	// errGoexit 计算函数调用了 runtime.Goexit，没有返回值可发布。
	errGoexit = fmt.Errorf("%w: runtime.Goexit called", ErrComputePanic)
)

// PanicError 携带 panic 值和发生 panic 时的调用栈。
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrComputePanic, e.Value)
}

// Unwrap 使 errors.Is(err, ErrComputePanic) 成立。
func (e *PanicError) Unwrap() error { return ErrComputePanic }
