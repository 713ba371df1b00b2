package redis

import (
	"fmt"
	"time"
)

// Config Redis 配置
type Config struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Password string `mapstructure:"password" json:"password"`
	// DB 数据库索引（0-15）
	DB int `mapstructure:"db" json:"db"`

	// PoolSize 最大连接数
	PoolSize int `mapstructure:"pool_size" json:"pool_size"`
	// MinIdleConns 最小空闲连接数
	MinIdleConns int `mapstructure:"min_idle_conns" json:"min_idle_conns"`
	// DialTimeout 建连超时
	DialTimeout time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
	// ReadTimeout 读超时
	ReadTimeout time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	// WriteTimeout 写超时
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	if c.DB < 0 || c.DB > 15 {
		return fmt.Errorf("%w: db index must be within [0, 15]", ErrInvalidConfig)
	}
	return nil
}

// withDefaults 用默认值补齐未设置的字段
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	out := *c
	if out.Host == "" {
		out.Host = def.Host
	}
	if out.Port == 0 {
		out.Port = def.Port
	}
	if out.PoolSize == 0 {
		out.PoolSize = def.PoolSize
	}
	if out.MinIdleConns == 0 {
		out.MinIdleConns = def.MinIdleConns
	}
	if out.DialTimeout == 0 {
		out.DialTimeout = def.DialTimeout
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = def.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	return &out
}

// addr 返回 "host:port"
func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
