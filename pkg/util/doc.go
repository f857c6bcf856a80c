// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xflight: 按 key 合并并发计算，阻塞式与协作式等待共用一张表
package util
