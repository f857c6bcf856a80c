package xconf

import "github.com/knadh/koanf/v2"

// Format 配置格式。
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 一份已解析的配置。实现并发安全，Reload 整体替换内容。
type Config interface {
	// Client 返回当前配置的 koanf 快照，Reload 之后需重新获取。
	Client() *koanf.Koanf

	// Unmarshal 把 path 下的内容解码到 target，path 为空表示整份配置。
	Unmarshal(path string, target any) error

	Exists(path string) bool

	// Reload 重新读取文件；失败时保留原内容。NewFromBytes 创建的 Config 返回 ErrReloadUnsupported。
	Reload() error

	// Path 文件路径，NewFromBytes 创建时为空。
	Path() string

	Format() Format
}
