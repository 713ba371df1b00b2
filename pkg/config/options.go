package config

import "github.com/spf13/viper"

// Option 配置选项函数
type Option func(*Loader)

// WithDefaults 设置默认配置值
func WithDefaults(defaults map[string]any) Option {
	return func(l *Loader) {
		for key, value := range defaults {
			l.viper.SetDefault(key, value)
		}
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		if prefix != "" {
			l.viper.SetEnvPrefix(prefix)
			l.viper.AutomaticEnv()
		}
	}
}

// WithViper 使用自定义的 Viper 实例
func WithViper(v *viper.Viper) Option {
	return func(l *Loader) {
		l.viper = v
	}
}
