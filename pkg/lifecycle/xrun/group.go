package xrun

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xmemo/pkg/observability/xlog"
)

// Group 并发运行一组服务：任一服务返回错误或 Cancel 被调用时，其余服务的 ctx 被取消。
//
// Go、GoWithName、Cancel 可并发调用；Wait 只调用一次。
type Group struct {
	eg  *errgroup.Group
	ctx context.Context // 传给服务的 ctx

	// root 只承载 Cancel 的 cause，用来区分"被要求停止"和"服务自己返回 Canceled"。
	root   context.Context
	cancel context.CancelCauseFunc
	cfg    *config
}

// NewGroup 创建 Group 并返回服务使用的 ctx。nil ctx 按 context.Background() 处理。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := newConfig(opts)

	root, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(root)
	g := &Group{eg: eg, ctx: egCtx, root: root, cancel: cancel, cfg: cfg}
	return g, egCtx
}

// SetLimit 限制同时运行的服务数，n < 0 不限。须在 Go 之前调用。
func (g *Group) SetLimit(n int) { g.eg.SetLimit(n) }

// Context 返回服务使用的 ctx。
func (g *Group) Context() context.Context { return g.ctx }

// Go 启动 fn。fn 返回非 nil 错误时取消其余服务。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，额外以 Debug 记录启停、以 Warn 记录异常退出。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.cfg.name), xlog.Component(name)}
		g.cfg.logger.Debug(g.ctx, "service started", attrs...)

		err := fn(g.ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			g.cfg.logger.Debug(g.ctx, "service stopped", attrs...)
		default:
			g.cfg.logger.Warn(g.ctx, "service failed", append(attrs, xlog.Err(err))...)
		}
		return err
	})
}

// Cancel 要求所有服务停止。cause 成为 Wait 的返回值，nil 表示正常停止。
// cause 不应包装 context.Canceled。
func (g *Group) Cancel(cause error) { g.cancel(cause) }

// Wait 等待所有服务返回。
//
// 因 Cancel 或父 ctx 取消导致的 context.Canceled 不视为错误：Wait 返回 Cancel 的
// cause（可能为 nil）。服务自己返回的 context.Canceled 原样返回。
func (g *Group) Wait() error {
	err := g.eg.Wait()
	stopped := g.root.Err() != nil
	g.cancel(nil)
	g.cfg.logger.Debug(context.Background(), "group stopped", slog.String("group", g.cfg.name))

	if !stopped {
		return err
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if cause := context.Cause(g.root); !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}
