package xlog

import (
	"context"
	"log/slog"
)

// Logger 结构化日志接口。所有方法都带 ctx，属性只接受 slog.Attr。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回附加了 attrs 的 Logger，与原 Logger 共享级别。
	With(attrs ...slog.Attr) Logger
}

// Leveler 运行时调整级别。xmemobench 的 soak 命令在配置文件变更时调用 SetLevel。
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel 是 Builder.Build 和 Default 的返回类型。
type LoggerWithLevel interface {
	Logger
	Leveler
}
