package xmetrics

import (
	"context"
	"strconv"
)

// Kind 跨度类型。缓存内部操作用 KindInternal，调用用户加载函数用 KindClient。
type Kind uint8

const (
	KindInternal Kind = iota
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindClient:
		return "Client"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Status 跨度结果。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// SpanOptions 描述一次观测。跨度名为 Component/Operation，空值记为 unknown。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 跨度结束时的结果。Status 为空时由 Err 推导。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

func (r Result) status() Status {
	switch {
	case r.Status != "":
		return r.Status
	case r.Err != nil:
		return StatusError
	default:
		return StatusOK
	}
}

// Span 一次进行中的观测，End 幂等。
type Span interface {
	End(result Result)
}

// Observer 创建跨度。实现可以同时实现 [Counter]。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// Counter 按名称累加计数器，是 Observer 的可选能力。
type Counter interface {
	Count(ctx context.Context, name string, n int64, attrs ...Attr)
}

// NoopObserver 什么也不记录，未配置观测时使用。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空跨度。
type NoopSpan struct{}

func (NoopSpan) End(Result) {}

// Start 用 observer 开始一次观测。
//
// 返回的 ctx 和 Span 都不为 nil：observer 为 nil 或返回 nil 时使用空实现，
// nil ctx 按 context.Background() 处理。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	next, span := observer.Start(ctx, opts)
	if next == nil {
		next = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return next, span
}

// Count 在 observer 实现 [Counter] 时累加 n，否则什么也不做。
func Count(ctx context.Context, observer Observer, name string, n int64, attrs ...Attr) {
	if c, ok := observer.(Counter); ok {
		c.Count(ctx, name, n, attrs...)
	}
}
