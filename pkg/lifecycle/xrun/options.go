package xrun

import (
	"os"

	"github.com/omeyang/xmemo/pkg/observability/xlog"
)

// Option 配置 Group 与 Run。
type Option func(*config)

type config struct {
	name            string
	logger          xlog.Logger
	signals         []os.Signal
	noSignalHandler bool
}

func newConfig(opts []Option) *config {
	cfg := &config{name: "xrun", logger: xlog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithName 设置出现在日志中的组名，默认 "xrun"。空字符串忽略。
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger 设置日志记录器，默认 xlog.Default()。nil 忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSignals 设置 Run 监听的信号，空列表使用 DefaultSignals()。
func WithSignals(signals []os.Signal) Option {
	own := append([]os.Signal(nil), signals...)
	return func(c *config) {
		c.signals = own
	}
}

// WithoutSignalHandler 关闭 Run 的信号监听。
func WithoutSignalHandler() Option {
	return func(c *config) {
		c.noSignalHandler = true
	}
}
