// Package xcache 提供进程内缓存，内置并发计算合并和共享的过期清理。
//
// # 核心组件
//
//   - Cache：类型化的 Get/Set/Delete/Clear/Len/Stats/Close
//   - Resolve 系列：未命中时计算并写入，同一 key 的并发计算只执行一次
//   - Memoize：把函数包装成按参数缓存的版本
//
// 存储由 xstore 提供（tlfu 或 lru 引擎），计算合并由 xflight 提供，
// 过期条目由进程级的 xexpire 协调器统一清理：所有实例共享一个调度循环，
// 最后一个实例关闭后循环退出。Get 同时做惰性过期判断，已过期未清理的条目视为未命中。
//
// # 快速开始
//
//	c, err := xcache.New[*User](10000, xcache.WithName("users"))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	u, err := c.ResolveContext(ctx, "user:42", func(ctx context.Context) (*User, error) {
//		return repo.Find(ctx, 42)
//	}, 5*time.Minute)
//
// # 阻塞式与协作式调用
//
// Resolve 在调用 goroutine 中阻塞等待；ResolveContext/ResolveAsync 可被 ctx 取消。
// 两者共用一张合并表，并发请求同一个 key 时只计算一次。取消只影响取消者本身：
// 已开始的计算继续执行，结果交给其他等待者并写入缓存。
//
// # 失败
//
// 计算失败时所有等待者收到同一个错误值，失败不写入缓存，下一次调用重新计算。
// 计算函数的 panic 转为包装 xflight.ErrComputePanic 的错误。
//
// # nolock
//
// WithNoLock(true) 跳过计算合并，每次未命中都直接计算，
// 只适用于同一时刻只有一个调用方的实例。
package xcache
