package xlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrEmptyFilename SetRotation 的文件名为空。
var ErrEmptyFilename = errors.New("xlog: empty rotation filename")

// RotationConfig 文件轮转参数，透传给 lumberjack。零值使用 lumberjack 默认值
// （100MB、保留全部旧文件、不压缩）。
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Builder 链式配置 Logger。出现的第一个错误由 Build 返回，之后的设置仍会执行但不覆盖它。
type Builder struct {
	w       io.Writer
	file    *lumberjack.Logger
	level   *slog.LevelVar
	json    bool
	source  bool
	onError func(error)
	err     error
}

// New 返回默认配置的 Builder：stderr、Info、text。
func New() *Builder {
	return &Builder{w: os.Stderr, level: new(slog.LevelVar)}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// SetOutput nil 忽略。与 SetRotation 同时使用时以后调用者为准。
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.w, b.file = w, nil
	}
	return b
}

func (b *Builder) SetLevel(level Level) *Builder {
	b.level.Set(level.slog())
	return b
}

func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		return b.fail(err)
	}
	return b.SetLevel(level)
}

// SetFormat 接受 text（默认，含空字符串）或 json，不区分大小写。
func (b *Builder) SetFormat(format string) *Builder {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		b.json = false
	case "json":
		b.json = true
	default:
		return b.fail(fmt.Errorf("xlog: unknown format %q", format))
	}
	return b
}

func (b *Builder) SetAddSource(enable bool) *Builder {
	b.source = enable
	return b
}

// SetRotation 改为写入 filename 并按 cfg 轮转，文件由 Build 返回的 cleanup 关闭。
func (b *Builder) SetRotation(filename string, cfg RotationConfig) *Builder {
	if strings.TrimSpace(filename) == "" {
		return b.fail(ErrEmptyFilename)
	}
	b.file = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	b.w = b.file
	return b
}

// SetOnError 设置写入失败回调。回调在写日志的 goroutine 中同步执行，其中的 panic 被吞掉。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// Build 返回 Logger 和可重复调用的 cleanup。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{Level: b.level, AddSource: b.source}
	var h slog.Handler
	if b.json {
		h = slog.NewJSONHandler(b.w, opts)
	} else {
		h = slog.NewTextHandler(b.w, opts)
	}

	cleanup := func() error { return nil }
	if f := b.file; f != nil {
		cleanup = sync.OnceValue(f.Close)
	}
	return newLogger(h, b.level, b.source, b.onError), cleanup, nil
}
