package xexpire

import (
	"time"

	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/observability/xmetrics"
)

// DefaultInterval 默认清理周期。
const DefaultInterval = 500 * time.Millisecond

type options struct {
	interval    time.Duration
	logger      xlog.Logger
	observer    xmetrics.Observer
	onTickError func(*Handle, error)
	concurrency int
	clock       func() time.Time
}

// Option 定义协调器的配置选项。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		interval:    DefaultInterval,
		logger:      xlog.Default(),
		observer:    xmetrics.NoopObserver{},
		concurrency: 1,
		clock:       time.Now,
	}
}

// WithInterval 设置清理周期，d <= 0 忽略。
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithLogger 设置日志记录器，nil 忽略。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置观测器，nil 忽略。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithOnTickError 设置实例清理失败时的回调。回调中的 panic 会被吞掉并记录日志。
func WithOnTickError(fn func(*Handle, error)) Option {
	return func(o *options) {
		o.onTickError = fn
	}
}

// WithConcurrency 设置一轮清理中并行处理的实例数，默认 1（顺序处理）。n < 1 忽略。
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.concurrency = n
		}
	}
}

// WithClock 设置时钟，传给 EvictExpired 的 now 由它产生。nil 忽略。
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}
