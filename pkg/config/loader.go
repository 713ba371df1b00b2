package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Loader 配置加载器
type Loader struct {
	viper *viper.Viper
}

// NewLoader 创建配置加载器
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		viper: viper.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile 加载配置文件
// configType: "yaml" 或 "json"
func (l *Loader) LoadFile(configPath string, configType string) error {
	l.viper.SetConfigFile(configPath)
	l.viper.SetConfigType(configType)

	// 环境变量覆盖（仅 YAML 服务器配置支持）
	if configType == "yaml" {
		l.viper.SetEnvPrefix("LUMO")
		l.viper.AutomaticEnv()
		l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	}

	if err := l.viper.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// Unmarshal 解析整个配置到结构体
func (l *Loader) Unmarshal(target interface{}) error {
	if target == nil {
		return ErrNilConfig
	}
	if err := l.viper.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// UnmarshalKey 解析配置中的某个 key 到结构体
func (l *Loader) UnmarshalKey(key string, target interface{}) error {
	if err := l.viper.UnmarshalKey(key, target); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

// Load 加载 YAML 配置文件并解析到 target
// 各服务 main 的统一入口：path 为空时取 LUMO_CONFIG 环境变量
func Load(path string, target interface{}) error {
	if path == "" {
		path = os.Getenv("LUMO_CONFIG")
	}
	if path == "" {
		return ErrConfigFileNotFound
	}

	loader := NewLoader()
	if err := loader.LoadFile(path, "yaml"); err != nil {
		return err
	}
	return loader.Unmarshal(target)
}
