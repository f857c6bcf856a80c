package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xmemo/pkg/config/xconf"
	"github.com/omeyang/xmemo/pkg/lifecycle/xrun"
	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/storage/xcache"
	"github.com/omeyang/xmemo/pkg/storage/xstore"
)

// withEnv 为命令构建 env，执行 fn 后输出指标并释放资源。
func withEnv(fn func(ctx context.Context, cmd *cli.Command, e *env) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) (err error) {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, e.close())
		}()

		if err := fn(ctx, cmd, e); err != nil {
			return err
		}
		return e.printMetrics(ctx)
	}
}

func printStats(e *env, label string, s xcache.Stats) {
	fmt.Fprintf(e.out, "%-10s policy=%s len=%d/%d requests=%d hits=%d misses=%d hit_rate=%.4f in_flight=%d\n",
		label, s.Policy, s.Len, s.Capacity, s.Requests, s.Hits, s.Misses, s.HitRate, s.InFlight)
}

// =============================================================================
// throughput
// =============================================================================

func throughputCommand() *cli.Command {
	return &cli.Command{
		Name:  "throughput",
		Usage: "并发 Get/Set 吞吐",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "workers", Usage: "并发 goroutine 数", Value: 8},
			&cli.IntFlag{Name: "ops", Usage: "总操作数", Value: 1_000_000},
			&cli.IntFlag{Name: "keys", Usage: "key 空间大小", Value: 50_000},
			&cli.FloatFlag{Name: "read-ratio", Usage: "读操作比例 [0,1]", Value: 0.9},
			&cli.DurationFlag{Name: "ttl", Usage: "写入 TTL，0 表示使用默认 TTL"},
			&cli.IntFlag{Name: "seed", Usage: "随机种子", Value: 1},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			c, err := newCache[int](e, "throughput")
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := runThroughput(ctx, c, throughputConfig{
				Workers:   cmd.Int("workers"),
				Ops:       cmd.Int("ops"),
				Keys:      cmd.Int("keys"),
				ReadRatio: cmd.Float("read-ratio"),
				TTL:       cmd.Duration("ttl"),
				Seed:      uint64(cmd.Int("seed")),
			}, e.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "ops=%d elapsed=%s ops/s=%.0f\n", res.Ops, res.Elapsed.Round(time.Millisecond), res.OpsPerSec())
			printStats(e, "throughput", res.Stats)
			return nil
		}),
	}
}

// =============================================================================
// hitratio
// =============================================================================

func hitRatioCommand() *cli.Command {
	return &cli.Command{
		Name:  "hitratio",
		Usage: "Zipf 分布下的命中率，未指定 --policy 时对比 tlfu 与 lru",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "items", Usage: "key 空间大小", Value: 100_000},
			&cli.IntFlag{Name: "requests", Usage: "请求数", Value: 500_000},
			&cli.FloatFlag{Name: "skew", Usage: "Zipf 参数 s，必须 > 1", Value: 1.07},
			&cli.IntFlag{Name: "seed", Usage: "随机种子", Value: 1},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			items := cmd.Int("items")
			if items <= 0 {
				return usagef("items must be positive, got %d", items)
			}
			cfg := hitRatioConfig{
				Items:    uint64(items),
				Requests: cmd.Int("requests"),
				Skew:     cmd.Float("skew"),
				Seed:     uint64(cmd.Int("seed")),
			}

			policies := []xstore.Policy{xstore.PolicyTinyLFU, xstore.PolicyLRU}
			if cmd.IsSet("policy") || e.cache.Policy != "" {
				policies = []xstore.Policy{e.policy()}
			}
			for _, p := range policies {
				c, err := newCache[uint64](e, "hitratio-"+string(p), xcache.WithPolicy(p))
				if err != nil {
					return err
				}
				stats, err := runHitRatio(ctx, c, cfg)
				closeErr := c.Close()
				if err != nil {
					return err
				}
				if closeErr != nil {
					return closeErr
				}
				printStats(e, string(p), stats)
			}
			return nil
		}),
	}
}

// =============================================================================
// stampede
// =============================================================================

func stampedeCommand() *cli.Command {
	return &cli.Command{
		Name:  "stampede",
		Usage: "同一 key 的并发 Resolve，展示计算合并（--nolock 下每个调用方各算一次）",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "callers", Usage: "并发调用方数量", Value: 100},
			&cli.DurationFlag{Name: "delay", Usage: "单次计算耗时", Value: 50 * time.Millisecond},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			c, err := newCache[int](e, "stampede")
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := runStampede(ctx, c, stampedeConfig{
				Callers: cmd.Int("callers"),
				Delay:   cmd.Duration("delay"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "callers=%d computations=%d errors=%d elapsed=%s\n",
				cmd.Int("callers"), res.Computations, res.Errors, res.Elapsed.Round(time.Millisecond))
			stats, err := c.Stats()
			if err != nil {
				return err
			}
			printStats(e, "stampede", stats)
			return nil
		}),
	}
}

// =============================================================================
// soak
// =============================================================================

func soakCommand() *cli.Command {
	return &cli.Command{
		Name:  "soak",
		Usage: "持续负载并周期输出统计，直到收到信号或达到 --duration",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "duration", Usage: "运行时长，0 表示直到收到信号"},
			&cli.DurationFlag{Name: "report", Usage: "统计输出间隔", Value: 5 * time.Second},
			&cli.IntFlag{Name: "workers", Usage: "并发 goroutine 数", Value: 4},
			&cli.IntFlag{Name: "keys", Usage: "key 空间大小", Value: 20_000},
			&cli.DurationFlag{Name: "ttl", Usage: "条目 TTL", Value: 2 * time.Second},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			c, err := newCache[int](e, "soak")
			if err != nil {
				return err
			}
			defer c.Close()

			var extra []func(context.Context) error
			if e.conf != nil {
				extra = append(extra, watchLogLevel(e))
			}
			opts := []xrun.Option{xrun.WithName("soak"), xrun.WithLogger(e.logger)}
			return runSoak(ctx, c, soakConfig{
				Duration: cmd.Duration("duration"),
				Report:   cmd.Duration("report"),
				Workers:  cmd.Int("workers"),
				Keys:     cmd.Int("keys"),
				TTL:      cmd.Duration("ttl"),
			}, opts, func(s xcache.Stats) { printStats(e, "soak", s) }, extra...)
		}),
	}
}

// watchLogLevel 监视配置文件，log.level 变化时热更新日志级别。
func watchLogLevel(e *env) func(context.Context) error {
	return func(ctx context.Context) error {
		err := xconf.Watch(ctx, e.conf, func(cfg xconf.Config, err error) {
			if err != nil {
				e.logger.Warn(ctx, "config reload failed", xlog.Err(err))
				return
			}
			var ls logSettings
			if err := cfg.Unmarshal("log", &ls); err != nil || ls.Level == "" {
				return
			}
			level, err := xlog.ParseLevel(ls.Level)
			if err != nil {
				e.logger.Warn(ctx, "invalid log level in config", xlog.Err(err))
				return
			}
			e.logger.SetLevel(level)
			e.logger.Info(ctx, "log level updated", slog.String("level", level.String()))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
