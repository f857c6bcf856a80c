package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/urfave/cli/v3"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xmemo/pkg/config/xconf"
	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/observability/xmetrics"
	"github.com/omeyang/xmemo/pkg/storage/xcache"
	"github.com/omeyang/xmemo/pkg/storage/xexpire"
	"github.com/omeyang/xmemo/pkg/storage/xstore"
)

const defaultCapacity = 10000

// logSettings 配置文件中的 log 节点。
type logSettings struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// env 一次命令执行的运行环境：日志、观测器、协调器和缓存配置。
type env struct {
	out      io.Writer
	conf     xconf.Config // 未指定 --config 时为 nil
	logger   xlog.LoggerWithLevel
	observer xmetrics.Observer
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	coord    *xexpire.Coordinator
	cache    xcache.Config

	closers []func() error
}

func newEnv(cmd *cli.Command) (*env, error) {
	e := &env{out: cmd.Root().Writer}
	if e.out == nil {
		e.out = os.Stdout
	}

	var ls logSettings
	e.cache = xcache.Config{Capacity: defaultCapacity}
	if path := cmd.String("config"); path != "" {
		conf, err := xconf.New(path)
		if err != nil {
			return nil, usagef("load config: %w", err)
		}
		e.conf = conf
		if conf.Exists("cache") {
			cfg, err := xcache.LoadConfig(conf, "cache")
			if err != nil {
				return nil, usagef("cache config: %w", err)
			}
			e.cache = cfg
		}
		if err := conf.Unmarshal("log", &ls); err != nil {
			return nil, usagef("log config: %w", err)
		}
	}

	// 显式设置的 flag 覆盖配置文件。
	if cmd.IsSet("log-level") || ls.Level == "" {
		ls.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") || ls.Format == "" {
		ls.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		ls.File = cmd.String("log-file")
	}
	if cmd.IsSet("capacity") {
		e.cache.Capacity = cmd.Int("capacity")
	}
	if cmd.IsSet("policy") {
		e.cache.Policy = cmd.String("policy")
	}
	if cmd.IsSet("nolock") {
		e.cache.NoLock = cmd.Bool("nolock")
	}
	if err := e.cache.Validate(); err != nil {
		return nil, &usageError{err: err}
	}

	if err := e.buildLogger(cmd, ls); err != nil {
		return nil, err
	}
	if err := e.buildObserver(cmd.Bool("metrics")); err != nil {
		_ = e.close()
		return nil, err
	}

	e.coord = xexpire.NewCoordinator(
		xexpire.WithInterval(e.cache.ExpireInterval),
		xexpire.WithLogger(e.logger),
		xexpire.WithObserver(e.observer),
		xexpire.WithOnTickError(func(h *xexpire.Handle, err error) {
			e.logger.Error(context.Background(), "eviction failed", xlog.Cache(h.Name()), xlog.Err(err))
		}),
	)
	e.closers = append(e.closers, func() error {
		e.coord.Stop()
		return nil
	})
	return e, nil
}

func (e *env) buildLogger(cmd *cli.Command, ls logSettings) error {
	b := xlog.New().
		SetOutput(cmd.Root().ErrWriter).
		SetLevelString(ls.Level).
		SetFormat(ls.Format)
	if ls.File != "" {
		b = b.SetRotation(ls.File, xlog.RotationConfig{MaxSizeMB: 64, MaxBackups: 3, Compress: true})
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return usagef("logger: %w", err)
	}
	e.logger = logger
	e.closers = append(e.closers, cleanup)
	return nil
}

func (e *env) buildObserver(enabled bool) error {
	if !enabled {
		e.observer = xmetrics.NoopObserver{}
		return nil
	}
	e.reader = sdkmetric.NewManualReader()
	e.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(e.reader))
	obs, err := xmetrics.NewOTelObserver(
		xmetrics.WithMeterProvider(e.provider),
		xmetrics.WithInstrumentationName("xmemobench"),
	)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	e.observer = obs
	e.closers = append(e.closers, func() error {
		return e.provider.Shutdown(context.Background())
	})
	return nil
}

// newCache 按 env 的配置创建缓存，opts 覆盖配置项。
func newCache[V any](e *env, name string, opts ...xcache.Option) (*xcache.Cache[V], error) {
	base := []xcache.Option{
		xcache.WithName(name),
		xcache.WithCoordinator(e.coord),
		xcache.WithLogger(e.logger),
		xcache.WithObserver(e.observer),
	}
	return xcache.NewFromConfig[V](e.cache, append(base, opts...)...)
}

func (e *env) policy() xstore.Policy {
	p, _ := xstore.ParsePolicy(e.cache.Policy)
	return p
}

// printMetrics 输出累计的计数器指标，未开启 --metrics 时为空操作。
func (e *env) printMetrics(ctx context.Context) error {
	if e.reader == nil {
		return nil
	}
	var rm metricdata.ResourceMetrics
	if err := e.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(e.out, "metrics:")
	for _, name := range names {
		fmt.Fprintf(e.out, "  %-28s %d\n", name, totals[name])
	}
	return nil
}

func (e *env) close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	return errors.Join(errs...)
}
