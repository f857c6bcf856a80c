package xrun

import (
	"context"
	"time"
)

// Ticker 返回每隔 interval 调用一次 fn 的服务函数，xexpire 的清理循环即由它驱动。
//
// immediate 为 true 时先同步调用一次。fn 执行超过 interval 时，期间错过的 tick
// 被合并，不会连续补跑。fn 返回错误时服务以该错误结束；ctx 结束时返回 ctx.Err()。
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		switch {
		case interval <= 0:
			return ErrInvalidInterval
		case fn == nil:
			return ErrNilFunc
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if immediate {
			if err := fn(ctx); err != nil {
				return err
			}
		}

		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				if err := fn(ctx); err != nil {
					return err
				}
			}
		}
	}
}
