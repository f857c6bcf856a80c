package xconf

// Option 配置键分隔符和结构体标签。
type Option func(*settings)

type settings struct {
	delim string
	tag   string
}

func newSettings(opts []Option) settings {
	s := settings{delim: ".", tag: "koanf"}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// WithDelim 默认 "."，空字符串忽略。
func WithDelim(delim string) Option {
	return func(s *settings) {
		if delim != "" {
			s.delim = delim
		}
	}
}

// WithTag 默认 "koanf"，空字符串忽略。
func WithTag(tag string) Option {
	return func(s *settings) {
		if tag != "" {
			s.tag = tag
		}
	}
}
