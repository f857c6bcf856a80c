package xconf

import "errors"

var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrLoadFailed        = errors.New("xconf: failed to load config")
	ErrParseFailed       = errors.New("xconf: failed to parse config")
	ErrUnmarshalFailed   = errors.New("xconf: failed to unmarshal config")

	// ErrReloadUnsupported 由 NewFromBytes 创建的 Config 的 Reload 和 Watch 返回。
	ErrReloadUnsupported = errors.New("xconf: reload unsupported for config created from bytes")
)

var (
	// ErrNilCallback Watch 的 cfg 或 fn 为 nil。
	ErrNilCallback = errors.New("xconf: nil config or callback")
	ErrWatchFailed = errors.New("xconf: watch failed")
)
