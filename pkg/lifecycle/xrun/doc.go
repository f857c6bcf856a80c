// Package xrun 管理一组长期运行的服务。
//
// Group 基于 errgroup：任一服务出错即取消其余服务，Cancel(cause) 让 Wait 返回 cause。
// Run 在 Group 之上监听系统信号，收到信号返回 *SignalError。Ticker 把周期函数包装成
// 服务，xexpire 的清理循环和 xmemobench soak 的统计输出都基于它。
//
//	err := xrun.Run(ctx, xrun.Ticker(time.Second, true, report))
//	if errors.Is(err, xrun.ErrSignal) {
//	    return nil
//	}
package xrun
