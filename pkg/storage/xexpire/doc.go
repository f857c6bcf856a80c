// Package xexpire 提供进程级的过期清理协调器。
//
// 多个缓存实例共享一个调度循环，而不是每个实例各自起一个 goroutine。
// 循环按需启停：第一个实例注册时启动，最后一个实例注销时停止，
// 没有注册实例时不占用任何 goroutine。
//
// # 用法
//
//	h, err := xexpire.Default().Register("users", cache)
//	if err != nil {
//		return err
//	}
//	defer h.Close()
//
// 注册对象只需实现 [Evicter]。每一轮清理在锁外进行，注册和注销可以并发发生；
// 本轮开始后才注销的实例会被跳过。
//
// # 失败隔离
//
// 单个实例返回错误或 panic 时，协调器记录 Warn 日志、累加
// xmemo.expire.failures 计数，并调用 [WithOnTickError] 设置的回调。
// 错误类型为 [*TickError]，errors.Is 可匹配 [ErrTickFailed]；
// panic 还会匹配 [ErrEvictPanic]。失败的实例保持注册，下一轮照常清理。
//
// 测试中可以用 [Coordinator.TickNow] 同步触发一轮，不依赖定时器。
package xexpire
