// Package xlog 是基于 log/slog 的结构化日志。
//
// Logger 的方法都带 context，属性只接受 slog.Attr。Builder 负责输出、级别、
// 格式和 lumberjack 文件轮转：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xmemo.log", xlog.RotationConfig{MaxSizeMB: 64}).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// 级别可以在运行时通过 SetLevel 调整，派生的 With Logger 随之生效。
// Default 提供进程级 Logger，Discard 用于测试和基准。
package xlog
