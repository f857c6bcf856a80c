// Package xconf 用 koanf 加载 YAML/JSON 配置。
//
// xconf 只做读取、解码和重载，默认值与校验由使用方负责，例如 xcache.LoadConfig：
//
//	cfg, err := xconf.New("xmemo.yaml")
//	if err != nil {
//		return err
//	}
//	cacheCfg, err := xcache.LoadConfig(cfg, "cache")
//
// Reload 成功后整体替换内容，之前 Client() 拿到的 koanf 实例保持旧值。
//
// Watch 基于 fsnotify 监视文件并在变更时重载，阻塞到 ctx 取消，可以直接作为 xrun 服务：
//
//	err := xrun.Run(ctx, func(ctx context.Context) error {
//		return xconf.Watch(ctx, cfg, func(c xconf.Config, err error) {
//			if err != nil {
//				logger.Warn(ctx, "config reload failed", xlog.Err(err))
//			}
//		})
//	})
package xconf
