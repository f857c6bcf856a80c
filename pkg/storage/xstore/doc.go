// Package xstore 提供带过期时间的有界内存键值存储，作为 xcache 的底层引擎。
//
// # 引擎
//
//   - PolicyTinyLFU（默认）：ristretto，频率草图准入 + SampledLFU 淘汰
//   - PolicyLRU：hashicorp/golang-lru simplelru，最近最少使用淘汰
//
// 两种引擎共用同一套过期索引（按过期时间排序的最小堆），
// EvictExpired 的开销与过期条目数成正比，而非与总条目数成正比。
//
// # 过期语义
//
// Set 写入无 TTL 的条目；SetWithTTL 在调用时刻把相对 TTL 换算为绝对时间；
// SetAt 直接接受绝对时间。非正 TTL 在写入前以 ErrInvalidTTL 拒绝。
//
// 过期条目在 Get 时视为未命中（惰性过期），由 EvictExpired 主动移除。
// xexpire 协调器周期性地对所有已注册存储调用 EvictExpired。
//
//	s, err := xstore.New[string](1024, xstore.WithPolicy(xstore.PolicyLRU))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	_ = s.SetWithTTL("k", "v", time.Minute)
package xstore
