// Package xretry 为缓存填充计算提供重试执行器，底层使用 avast/retry-go/v5。
//
// 在 xcache 中，重试只发生在合并计算的获胜方内部：所有等待方共享最终结果，
// 不会因为重试而放大对后端的请求。
//
//	r := xretry.NewRetryer(
//		xretry.WithAttempts(3),
//		xretry.WithBackoff(xretry.NewExponentialBackoff(
//			xretry.WithInitialDelay(20*time.Millisecond),
//			xretry.WithMaxDelay(time.Second),
//		)),
//	)
//	v, err := xretry.DoWithResult(ctx, r, loadUser)
//
// # 错误分类
//
// 默认所有错误都可重试。以下情况立即返回：
//   - 用 [Permanent] 包装的错误，或实现 Retryable() 返回 false 的错误
//   - ctx 已取消或超时
//   - [WithRetryIf] 判定为不可重试
package xretry
