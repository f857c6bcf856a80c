package xconf

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖时间。
const DefaultDebounce = 100 * time.Millisecond

// WatchCallback 配置文件变更回调，err 为重载或监视过程中的错误。
// 重载失败时 cfg 保留旧配置。
type WatchCallback func(cfg Config, err error)

// WatchOption 监视配置选项。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce 设置防抖时间：d 内的多次变更只触发一次重载。d <= 0 忽略。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watch 监视 cfg 对应的配置文件，变更时调用 Reload 并回调 fn。
// 阻塞直到 ctx 取消，返回 ctx.Err()；可直接作为 xrun 服务运行。
//
// 监视的是文件所在目录：编辑器保存时常先删除再创建，或写临时文件后 rename，
// 直接监视文件会丢失事件。
//
// 从字节数据创建的 Config 返回 ErrReloadUnsupported。
func Watch(ctx context.Context, cfg Config, fn WatchCallback, opts ...WatchOption) error {
	if cfg == nil || fn == nil {
		return ErrNilCallback
	}
	path := cfg.Path()
	if path == "" {
		return ErrReloadUnsupported
	}

	o := &watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatchFailed, err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: %w", ErrWatchFailed, err)
	}
	filename := filepath.Base(path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return ctx.Err()
			}
			if !relevant(ev, filename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(o.debounce)
			} else {
				timer.Reset(o.debounce)
			}
			fire = timer.C

		case werr, ok := <-w.Errors:
			if !ok {
				return ctx.Err()
			}
			fn(cfg, fmt.Errorf("%w: %w", ErrWatchFailed, werr))

		case <-fire:
			fire = nil
			fn(cfg, cfg.Reload())
		}
	}
}

// relevant 只关心目标文件的写入、创建和 rename。
func relevant(ev fsnotify.Event, filename string) bool {
	if filepath.Base(ev.Name) != filename {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
