package rpc

import (
	"fmt"
	"time"
)

// ClientConfig 客户端配置
type ClientConfig struct {
	// Addr 服务端地址 "host:port"
	Addr string `mapstructure:"addr"`
	// DialTimeout 建连超时
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// HeartbeatInterval 心跳间隔，0 表示关闭心跳
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// MaxRetries 单次调用最大尝试次数
	MaxRetries int `mapstructure:"max_retries"`
	// Codec 序列化格式
	Codec CodecType `mapstructure:"codec"`
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		DialTimeout:       3 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		MaxRetries:        3,
		Codec:             CodecTypeJSON,
	}
}

// Validate 校验配置
func (c *ClientConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("rpc: addr is required")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("rpc: dial_timeout must be positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("rpc: max_retries must be positive")
	}
	return nil
}

// ServerConfig 服务端配置
type ServerConfig struct {
	// Addr 监听地址 "host:port"
	Addr string `mapstructure:"addr"`
	// ShutdownTimeout 优雅关闭时等待在途请求完成的上限
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultServerConfig 返回默认服务端配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate 校验配置
func (c *ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("rpc: addr is required")
	}
	return nil
}
