// xmemobench 是 xcache 的基准与演示工具。
//
// 用法:
//
//	xmemobench [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      配置文件（yaml/json），读取 cache 与 log 节点
//	    --capacity    缓存容量，覆盖配置文件
//	    --policy      淘汰策略 tlfu|lru，覆盖配置文件
//	    --nolock      关闭计算合并
//	    --log-level   日志级别 (默认: info)
//	    --log-format  日志格式 text|json (默认: text)
//	    --log-file    日志文件，设置后按大小轮转
//	    --metrics     结束时打印 OpenTelemetry 指标
//
// 命令:
//
//	throughput     并发 Get/Set 吞吐
//	hitratio       Zipf 分布下的命中率，对比 tlfu 与 lru
//	stampede       同一 key 的并发 Resolve，展示计算合并
//	soak           持续负载并周期输出统计，直到收到信号或达到 --duration
//
// 退出码:
//
//	0: 成功
//	1: 运行失败
//	2: 参数错误
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xmemobench",
		Usage:   "xcache 基准与演示工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件（yaml/json）",
			},
			&cli.IntFlag{
				Name:  "capacity",
				Usage: "缓存容量",
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "淘汰策略 tlfu|lru",
			},
			&cli.BoolFlag{
				Name:  "nolock",
				Usage: "关闭计算合并",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 debug|info|warn|error",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 text|json",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件，按大小轮转",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "结束时打印 OpenTelemetry 指标",
			},
		},
		Commands: []*cli.Command{
			throughputCommand(),
			hitRatioCommand(),
			stampedeCommand(),
			soakCommand(),
		},
		// 退出码由 run 统一映射，不让 urfave/cli 直接 os.Exit。
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp()
	app.Writer = stdout
	app.ErrWriter = stderr
	if err := app.Run(ctx, args); err != nil {
		var uerr *usageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", err)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// usageError 参数错误，退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}
