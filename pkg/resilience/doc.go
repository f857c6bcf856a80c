// Package resilience 提供保护后端计算的子包。
//
// 子包列表：
//   - xretry: 重试执行器，基于 avast/retry-go
//   - xbreaker: 熔断器，基于 sony/gobreaker
package resilience
