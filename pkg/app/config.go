package app

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/lumochat/lumo/pkg/config"
)

var configPath string

// LoadConfig 加载服务配置到 target。
// 优先级：--config 命令行参数 > LUMO_CONFIG 环境变量 > ./config.yaml；
// 单项配置可被 LUMO_ 前缀的环境变量覆盖。
func LoadConfig(target any) error {
	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", "", "path to config file")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}

	path := configPath
	if path == "" {
		path = os.Getenv("LUMO_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("app: config file not found at %s", path)
	}
	configPath = path

	loader := config.NewLoader()
	if err := loader.LoadFile(path, ""); err != nil {
		return err
	}
	return loader.Unmarshal(target)
}

// ConfigPath 返回最终生效的配置文件路径
func ConfigPath() string {
	return configPath
}
