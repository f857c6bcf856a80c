// Package storage 提供进程内缓存相关的子包。
//
// 子包列表：
//   - xstore: 存储引擎适配层，tlfu（ristretto）与 lru（golang-lru），带过期索引
//   - xexpire: 进程级过期协调器，单个后台循环为所有缓存实例清理过期条目
//   - xcache: 缓存门面，Get/Set、Resolve 计算合并、Memoize
//
// 设计原则：
//   - 实例数量不影响后台 goroutine 数量
//   - 同一 key 的并发未命中只计算一次
//   - 内置可观测性（日志、指标、追踪）
package storage
