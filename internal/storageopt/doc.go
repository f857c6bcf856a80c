// Package storageopt 提供 storage 子包共享的统计计数器。
//
// 本包是 internal 包，仅供 pkg/storage 下的子包（xcache、xexpire）使用。
// 外部用户不应直接导入此包。
//
// 主要功能：
//   - RequestCounter：请求/命中原子计数，Snapshot 派生 Misses 与 HitRate
//   - EvictionCounter：过期协调器的轮次、清理条目与失败计数
package storageopt
