package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// 进程级默认 Logger，供没有注入 Logger 的组件使用，例如 xexpire.Default()。
var (
	defaultLogger atomic.Pointer[LoggerWithLevel]
	defaultInit   sync.Mutex
)

// Default 返回默认 Logger，首次调用时创建（stderr、Info、text）。
func Default() LoggerWithLevel {
	if p := defaultLogger.Load(); p != nil {
		return *p
	}
	defaultInit.Lock()
	defer defaultInit.Unlock()
	if p := defaultLogger.Load(); p != nil {
		return *p
	}

	l, _, err := New().Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "xlog: build default logger: %v\n", err)
		l = plain(os.Stderr)
	}
	defaultLogger.Store(&l)
	return l
}

// SetDefault 替换默认 Logger，nil 忽略。
func SetDefault(l LoggerWithLevel) {
	if l != nil {
		defaultLogger.Store(&l)
	}
}

// ResetDefault 清除默认 Logger，下次 Default 重新创建。测试用。
func ResetDefault() {
	defaultInit.Lock()
	defaultLogger.Store(nil)
	defaultInit.Unlock()
}

// Discard 返回丢弃全部输出的 Logger。
func Discard() LoggerWithLevel { return plain(io.Discard) }

func plain(w io.Writer) LoggerWithLevel {
	return newLogger(slog.NewTextHandler(w, nil), new(slog.LevelVar), false, nil)
}
