package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 与 slog.Level 数值相同。实现了 TextUnmarshaler，配置里直接写 "debug"。
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

func (l Level) slog() slog.Level { return slog.Level(l) }

func (l Level) String() string { return l.slog().String() }

func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Level) UnmarshalText(data []byte) error {
	v, err := ParseLevel(string(data))
	if err == nil {
		*l = v
	}
	return err
}

// ParseLevel 不区分大小写，忽略首尾空白。未知名称返回 LevelInfo 和错误。
func ParseLevel(s string) (Level, error) {
	if v, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
}
