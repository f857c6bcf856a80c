package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// 扩展名到格式，New 按此识别文件。
var extFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

func parserFor(f Format) (koanf.Parser, error) {
	switch f {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

type fileConfig struct {
	path   string
	format Format
	parser koanf.Parser
	set    settings

	snap atomic.Pointer[koanf.Koanf]
}

var _ Config = (*fileConfig)(nil)

// New 读取并解析 path，格式由扩展名决定（.yaml、.yml、.json）。
func New(path string, opts ...Option) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := extFormats[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
	c, err := newConfig(path, format, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromBytes 解析内存中的配置。data 为空时得到空配置。
func NewFromBytes(data []byte, format Format, opts ...Option) (Config, error) {
	c, err := newConfig("", format, opts)
	if err != nil {
		return nil, err
	}
	if err := c.load(data); err != nil {
		return nil, err
	}
	return c, nil
}

func newConfig(path string, format Format, opts []Option) (*fileConfig, error) {
	parser, err := parserFor(format)
	if err != nil {
		return nil, err
	}
	return &fileConfig{path: path, format: format, parser: parser, set: newSettings(opts)}, nil
}

// load 解析 data，成功后才替换快照。
func (c *fileConfig) load(data []byte) error {
	k := koanf.New(c.set.delim)
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), c.parser); err != nil {
			return fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}
	c.snap.Store(k)
	return nil
}

func (c *fileConfig) Reload() error {
	if c.path == "" {
		return ErrReloadUnsupported
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return c.load(data)
}

func (c *fileConfig) Client() *koanf.Koanf { return c.snap.Load() }

func (c *fileConfig) Unmarshal(path string, target any) error {
	err := c.Client().UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: c.set.tag})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

func (c *fileConfig) Exists(path string) bool { return c.Client().Exists(path) }

func (c *fileConfig) Path() string { return c.path }

func (c *fileConfig) Format() Format { return c.format }
