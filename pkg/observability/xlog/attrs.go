package xlog

import (
	"log/slog"
	"time"
)

// 公共字段名。xcache 和 xexpire 的日志用同一组 key，便于按缓存实例检索。
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyCache     = "cache"
	KeyCacheKey  = "cache_key"
)

// Err 的 err 为 nil 时返回零值 Attr，slog 会跳过它。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func Duration(d time.Duration) slog.Attr { return slog.String(KeyDuration, d.String()) }

func Count(n int64) slog.Attr { return slog.Int64(KeyCount, n) }

func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

// Cache 缓存实例名，对应 xcache.WithName。
func Cache(name string) slog.Attr { return slog.String(KeyCache, name) }

func CacheKey(key string) slog.Attr { return slog.String(KeyCacheKey, key) }
