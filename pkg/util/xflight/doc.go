// Package xflight 提供按 key 合并并发计算的请求合并器（single-flight）。
//
// 同一时刻每个 key 至多一个计算在执行。第一个请求者（owner）执行计算，
// 其余请求者挂在同一条目上等待，计算完成后所有人收到同一个结果。
//
// # 两类调用方
//
//   - Do：阻塞式。等待者阻塞在条件变量上，owner 在当前 goroutine 计算
//   - DoContext / DoChan：协作式。等待者持有一个 channel，可随 ctx 取消单独退出
//
// 两类调用方共用一张分片表，请求同一个 key 时合并到同一个计算。
//
// # 完成顺序
//
// 发布结果 → 释放全部等待者 → 从表中移除条目。失败与 panic 同样如此，
// 条目不会残留，下一次请求总会重新计算。失败不被缓存，也不自动重试。
//
// # 取消
//
// 协作式等待者被取消时只摘下自己并返回 ctx.Err()。owner 被取消时，
// 已开始的计算继续执行并把结果发布给其他等待者，计算函数收到的 context
// 保留原 ctx 的值但不会被取消。
//
// # panic
//
// 计算函数的 panic 被 recover 并转换为 *PanicError（errors.Is 匹配
// ErrComputePanic），所有等待者收到同一个错误。
package xflight
