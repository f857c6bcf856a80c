package xcache

import (
	"errors"

	"github.com/omeyang/xmemo/pkg/storage/xstore"
)

var (
	// ErrClosed 表示缓存已关闭。Close 之外的操作在关闭后都返回此错误。
	ErrClosed = errors.New("xcache: cache closed")

	// ErrNilCompute 表示计算函数为 nil。
	ErrNilCompute = errors.New("xcache: nil compute function")

	// ErrInvalidConfig 表示配置参数无效。
	ErrInvalidConfig = errors.New("xcache: invalid configuration")

	// ErrInvalidTTL 表示 TTL 非法（写入时 ttl <= 0，Resolve 时 ttl < 0）。
	// 与 xstore.ErrInvalidTTL 为同一个值。
	ErrInvalidTTL = xstore.ErrInvalidTTL

	// ErrInvalidCapacity 表示容量非法。与 xstore.ErrInvalidCapacity 为同一个值。
	ErrInvalidCapacity = xstore.ErrInvalidCapacity
)

// mapStoreErr 把存储层的关闭错误统一为 ErrClosed。
func mapStoreErr(err error) error {
	if errors.Is(err, xstore.ErrClosed) {
		return ErrClosed
	}
	return err
}
