package xrun

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// DefaultSignals 返回默认监听的信号：SIGHUP、SIGINT、SIGTERM、SIGQUIT。每次返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// Run 运行 services 并监听系统信号，等价于 RunWithOptions(ctx, nil, services...)。
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 运行 services 直到以下任一情况发生：
//   - 所有服务都已返回（返回第一个错误或 nil）
//   - 某个服务返回错误（其余服务被取消）
//   - 收到信号（返回 *SignalError）
//   - ctx 被取消（返回 nil）
//
// 没有服务时立即返回 nil。
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.cfg.noSignalHandler {
		g.Go(func(ctx context.Context) error {
			return watchSignals(ctx, g)
		})
	}

	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		g.Go(func(ctx context.Context) error {
			defer wg.Done()
			if svc == nil {
				return ErrNilFunc
			}
			return svc(ctx)
		})
	}
	if !g.cfg.noSignalHandler {
		// 服务全部结束后不再等待信号。
		go func() {
			wg.Wait()
			g.Cancel(nil)
		}()
	}

	return g.Wait()
}

func watchSignals(ctx context.Context, g *Group) error {
	signals := g.cfg.signals
	if len(signals) == 0 {
		signals = DefaultSignals()
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	defer signal.Stop(ch)

	var sig os.Signal
	select {
	case sig = <-injectedSignals(ctx):
	case sig = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.cfg.logger.Info(ctx, "received signal",
		slog.String("group", g.cfg.name),
		slog.String("signal", sig.String()),
	)
	g.Cancel(&SignalError{Signal: sig})
	return nil
}

// signalSourceKey 测试通过 ctx 注入信号，不发送真实信号。
type signalSourceKey struct{}

func injectedSignals(ctx context.Context) <-chan os.Signal {
	ch, _ := ctx.Value(signalSourceKey{}).(<-chan os.Signal)
	return ch
}

func withInjectedSignals(ctx context.Context, ch <-chan os.Signal) context.Context {
	return context.WithValue(ctx, signalSourceKey{}, ch)
}
