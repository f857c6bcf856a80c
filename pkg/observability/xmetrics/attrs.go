package xmetrics

import "time"

// 常用属性键。span 与计数器共用，便于在后端按同一维度聚合。
const (
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyStatus    = "status"
	KeyCache     = "cache"
	KeyReason    = "reason"
)

// Attr 一个观测属性。Value 支持 string、bool、int、int64、float64 和 time.Duration，
// 其余类型按 fmt.Sprint 转成字符串。
type Attr struct {
	Key   string
	Value any
}

func String(key, value string) Attr { return Attr{Key: key, Value: value} }

func Bool(key string, value bool) Attr { return Attr{Key: key, Value: value} }

func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }

func Int64(key string, value int64) Attr { return Attr{Key: key, Value: value} }

// Duration 以纳秒记录。
func Duration(key string, value time.Duration) Attr { return Attr{Key: key, Value: value} }

// Cache 标识缓存实例名。
func Cache(name string) Attr { return String(KeyCache, name) }

// Reason 标识淘汰原因，取值见 xstore.EvictReason。
func Reason(reason string) Attr { return String(KeyReason, reason) }
