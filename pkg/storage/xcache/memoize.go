package xcache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Memoize
// =============================================================================

// MemoizeOption 定义 Memoize 的配置选项。
type MemoizeOption[A any] func(*memoizeOptions[A])

type memoizeOptions[A any] struct {
	keyFunc func(A) string
	typed   bool
	prefix  string
}

// WithKeyFunc 使用显式的 key 派生函数，替代 AutoKey。nil 忽略。
func WithKeyFunc[A any](fn func(A) string) MemoizeOption[A] {
	return func(o *memoizeOptions[A]) {
		if fn != nil {
			o.keyFunc = fn
		}
	}
}

// WithTyped 让 AutoKey 区分参数类型：开启后 int(1) 与 int64(1) 得到不同的 key。
func WithTyped[A any](typed bool) MemoizeOption[A] {
	return func(o *memoizeOptions[A]) {
		o.typed = typed
	}
}

// WithKeyPrefix 为派生的 key 加前缀，多个函数共用一个缓存时用于隔离。
func WithKeyPrefix[A any](prefix string) MemoizeOption[A] {
	return func(o *memoizeOptions[A]) {
		o.prefix = prefix
	}
}

// Memoize 返回 fn 的记忆化版本：结果按参数派生的 key 缓存在 c 中，
// 未命中时经 ResolveContext 计算，同一参数的并发调用只计算一次。
//
// 多个参数可以打包为结构体作为 A。默认 key 由 AutoKey 派生。
func Memoize[A, V any](c *Cache[V], ttl time.Duration, fn func(context.Context, A) (V, error), opts ...MemoizeOption[A]) func(context.Context, A) (V, error) {
	o := &memoizeOptions[A]{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	keyOf := o.keyFunc
	if keyOf == nil {
		typed := o.typed
		keyOf = func(a A) string { return AutoKey(typed, a) }
	}

	return func(ctx context.Context, a A) (V, error) {
		if fn == nil {
			var zero V
			return zero, ErrNilCompute
		}
		key := o.prefix + keyOf(a)
		return c.ResolveContext(ctx, key, func(ctx context.Context) (V, error) {
			return fn(ctx, a)
		}, ttl)
	}
}

// AutoKey 由位置参数派生缓存 key。
//
// 每个参数以 %v 格式化，带长度前缀拼接，参数边界不会产生歧义。
// typed 为 true 时同时写入参数的动态类型。
//
// 格式化依赖 fmt 的输出：指针按地址，map 按键排序。
// 需要稳定语义的场景应使用 WithKeyFunc。
func AutoKey(typed bool, args ...any) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('|')
		}
		if typed {
			t := fmt.Sprintf("%T", arg)
			writeField(&b, t)
			b.WriteByte(':')
		}
		writeField(&b, fmt.Sprintf("%v", arg))
	}
	return b.String()
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte('#')
	b.WriteString(s)
}
