package etcd

import (
	"fmt"
	"time"
)

// Config etcd 注册中心配置
type Config struct {
	// Endpoints etcd 集群地址
	Endpoints []string `mapstructure:"endpoints" json:"endpoints"`
	// DialTimeout 连接超时
	DialTimeout time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
	// TTL 租约过期时间
	TTL time.Duration `mapstructure:"ttl" json:"ttl"`
	// Namespace 命名空间前缀（如 /lumo/services）
	Namespace string `mapstructure:"namespace" json:"namespace"`
	// Username etcd 认证用户名
	Username string `mapstructure:"username" json:"username"`
	// Password etcd 认证密码
	Password string `mapstructure:"password" json:"password"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
		TTL:         3 * time.Second,
		Namespace:   "/lumo/services",
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("etcd: endpoints is required")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("etcd: dial_timeout must be positive")
	}
	if c.TTL < time.Second {
		return fmt.Errorf("etcd: ttl must be at least 1s")
	}
	if c.Namespace == "" {
		return fmt.Errorf("etcd: namespace is required")
	}
	return nil
}

// withDefaults 用默认值补齐未设置的字段
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	out := *c
	if len(out.Endpoints) == 0 {
		out.Endpoints = def.Endpoints
	}
	if out.DialTimeout == 0 {
		out.DialTimeout = def.DialTimeout
	}
	if out.TTL == 0 {
		out.TTL = def.TTL
	}
	if out.Namespace == "" {
		out.Namespace = def.Namespace
	}
	return &out
}
