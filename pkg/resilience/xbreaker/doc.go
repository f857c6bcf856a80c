// Package xbreaker 基于 sony/gobreaker/v2 的熔断器，用于保护缓存未命中时的后端计算。
//
// 后端持续失败时熔断器打开，未命中的 Resolve 直接返回 [ErrOpenState]，
// 不再把压力传导到后端。熔断错误实现 Retryable() == false，与 xretry 组合时不会被重试。
//
//	b := xbreaker.NewBreaker("users",
//		xbreaker.WithFailureThreshold(5),
//		xbreaker.WithTimeout(30*time.Second),
//	)
//	v, err := xbreaker.Execute(ctx, b, func() (User, error) { return load(ctx, id) })
package xbreaker
