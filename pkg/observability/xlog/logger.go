package xlog

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

var _ LoggerWithLevel = (*logger)(nil)

// sink 记录写入失败，由同一 Builder 派生的所有 Logger 共享。
type sink struct {
	onError func(error)
	errors  atomic.Uint64
	busy    atomic.Bool // onError 执行中，防止回调里再写日志导致递归
}

func (s *sink) fail(err error) {
	s.errors.Add(1)
	if s.onError == nil || !s.busy.CompareAndSwap(false, true) {
		return
	}
	defer s.busy.Store(false)
	defer func() {
		if recover() != nil {
			s.errors.Add(1)
		}
	}()
	s.onError(err)
}

type logger struct {
	h      slog.Handler
	level  *slog.LevelVar
	source bool
	sink   *sink
}

func newLogger(h slog.Handler, level *slog.LevelVar, source bool, onError func(error)) *logger {
	return &logger{h: h, level: level, source: source, sink: &sink{onError: onError}}
}

// write 的调用栈深度固定为 Debug/Info/... -> write，addSource 依赖这一点。
//
//go:noinline
func (l *logger) write(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.h.Enabled(ctx, level) {
		return
	}
	var pc uintptr
	if l.source {
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:]) // Callers, write, Debug/Info/...
		pc = pcs[0]
	}
	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	if err := l.h.Handle(ctx, r); err != nil {
		l.sink.fail(err)
	}
}

func (l *logger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelDebug, msg, attrs)
}

func (l *logger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelInfo, msg, attrs)
}

func (l *logger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelWarn, msg, attrs)
}

func (l *logger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelError, msg, attrs)
}

func (l *logger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	child := *l
	child.h = l.h.WithAttrs(attrs)
	return &child
}

func (l *logger) SetLevel(level Level) { l.level.Set(level.slog()) }

func (l *logger) GetLevel() Level { return Level(l.level.Level()) }

func (l *logger) Enabled(ctx context.Context, level Level) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.h.Enabled(ctx, level.slog())
}

// ErrorCount 返回写入失败次数（含 onError 回调 panic）。非本包创建的 Logger 返回 0。
func ErrorCount(l Logger) uint64 {
	if x, ok := l.(*logger); ok {
		return x.sink.errors.Load()
	}
	return 0
}
