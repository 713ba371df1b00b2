package postgres

import (
	"fmt"
	"time"
)

// Config PostgreSQL 配置
type Config struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	DBName   string `mapstructure:"db_name" json:"db_name"`
	// SSLMode disable, require, verify-ca, verify-full
	SSLMode string `mapstructure:"ssl_mode" json:"ssl_mode"`

	// MaxConns 连接池最大连接数
	MaxConns int32 `mapstructure:"max_conns" json:"max_conns"`
	// MinConns 连接池最小连接数
	MinConns int32 `mapstructure:"min_conns" json:"min_conns"`
	// MaxConnLifetime 连接最大生命周期
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" json:"max_conn_lifetime"`
	// MaxConnIdleTime 连接最大空闲时间
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time" json:"max_conn_idle_time"`

	// ConnectTimeout 建连超时
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
	// QueryTimeout 单条查询超时，0 表示不限制
	QueryTimeout time.Duration `mapstructure:"query_timeout" json:"query_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		DBName:          "lumo",
		SSLMode:         "disable",
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		QueryTimeout:    30 * time.Second,
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
	if c.User == "" {
		return fmt.Errorf("%w: user is empty", ErrInvalidConfig)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: db_name is empty", ErrInvalidConfig)
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("%w: max_conns must be positive", ErrInvalidConfig)
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("%w: min_conns must be within [0, max_conns]", ErrInvalidConfig)
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
	if out.User == "" {
		out.User = def.User
	}
	if out.DBName == "" {
		out.DBName = def.DBName
	}
	if out.SSLMode == "" {
		out.SSLMode = def.SSLMode
	}
	if out.MaxConns == 0 {
		out.MaxConns = def.MaxConns
	}
	if out.MinConns == 0 {
		out.MinConns = def.MinConns
	}
	if out.MaxConnLifetime == 0 {
		out.MaxConnLifetime = def.MaxConnLifetime
	}
	if out.MaxConnIdleTime == 0 {
		out.MaxConnIdleTime = def.MaxConnIdleTime
	}
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = def.ConnectTimeout
	}
	if out.QueryTimeout == 0 {
		out.QueryTimeout = def.QueryTimeout
	}
	return &out
}

// dsn 构造 pgx 连接串
func (c *Config) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, int(c.ConnectTimeout.Seconds()))
}
