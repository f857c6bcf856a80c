// Package xmetrics 是缓存组件使用的观测接口。
//
// 组件只依赖 [Observer]、[Span] 和 [Attr]；[NewOTelObserver] 提供基于
// OpenTelemetry 的实现，未配置时使用 [NoopObserver]。
//
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xexpire",
//		Operation: "tick",
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// 每个跨度记录 xmemo.operation.total 和 xmemo.operation.duration，维度为
// component、operation、status。实现了 [Counter] 的 Observer 还可以按名称累加
// 计数器，例如 xmemo.expire.evicted、xmemo.cache.compute。
package xmetrics
