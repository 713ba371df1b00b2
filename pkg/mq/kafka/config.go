package kafka

import "time"

// Config Kafka 配置
type Config struct {
	// Brokers broker 地址列表
	Brokers []string `mapstructure:"brokers" json:"brokers"`

	// Producer 生产者配置
	Producer ProducerConfig `mapstructure:"producer" json:"producer"`

	// Consumer 消费者配置
	Consumer ConsumerConfig `mapstructure:"consumer" json:"consumer"`

	// SASL 认证配置（可选）
	SASL *SASLConfig `mapstructure:"sasl" json:"sasl,omitempty"`

	// TLS 配置（可选）
	TLS *TLSConfig `mapstructure:"tls" json:"tls,omitempty"`
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	// BatchSize 单批最大消息数
	BatchSize int `mapstructure:"batch_size" json:"batch_size"`

	// BatchTimeout 批量最长等待时间
	BatchTimeout time.Duration `mapstructure:"batch_timeout" json:"batch_timeout"`

	// MaxRetries 发送失败最大重试次数
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`

	// RequiredAcks 确认模式: 0 不等待, 1 Leader, -1 全部副本
	RequiredAcks int `mapstructure:"required_acks" json:"required_acks"`

	// Compression 压缩算法: none, gzip, snappy, lz4, zstd
	Compression string `mapstructure:"compression" json:"compression"`

	// WriteTimeout 写超时
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	// GroupID 消费者组 ID
	GroupID string `mapstructure:"group_id" json:"group_id"`

	// MinBytes 最小拉取字节数
	MinBytes int `mapstructure:"min_bytes" json:"min_bytes"`

	// MaxBytes 最大拉取字节数
	MaxBytes int `mapstructure:"max_bytes" json:"max_bytes"`

	// MaxWait 未达到 MinBytes 时的最长等待
	MaxWait time.Duration `mapstructure:"max_wait" json:"max_wait"`

	// StartOffset 起始偏移量: -1 Latest, -2 Earliest
	StartOffset int64 `mapstructure:"start_offset" json:"start_offset"`

	// HeartbeatInterval 组心跳间隔
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" json:"heartbeat_interval"`

	// SessionTimeout 会话超时
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout"`

	// Concurrency 并发消费协程数
	Concurrency int `mapstructure:"concurrency" json:"concurrency"`
}

// SASLConfig SASL 认证配置
type SASLConfig struct {
	// Mechanism 认证机制: PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Mechanism string `mapstructure:"mechanism" json:"mechanism"`
	// Username 用户名
	Username string `mapstructure:"username" json:"username"`
	// Password 密码
	Password string `mapstructure:"password" json:"password"`
}

// TLSConfig TLS 配置
type TLSConfig struct {
	// Enable 是否启用
	Enable bool `mapstructure:"enable" json:"enable"`
	// CertFile 客户端证书
	CertFile string `mapstructure:"cert_file" json:"cert_file"`
	// KeyFile 客户端私钥
	KeyFile string `mapstructure:"key_file" json:"key_file"`
	// CAFile CA 证书
	CAFile string `mapstructure:"ca_file" json:"ca_file"`
	// InsecureSkipVerify 跳过证书校验
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// DefaultConfig 默认配置。
// 生产者默认同步发送且等待全部副本确认，消费者默认手动提交。
func DefaultConfig() *Config {
	return &Config{
		Brokers: []string{"localhost:9092"},
		Producer: ProducerConfig{
			BatchSize:    100,
			BatchTimeout: time.Second,
			MaxRetries:   3,
			RequiredAcks: -1,
			Compression:  "snappy",
			WriteTimeout: 10 * time.Second,
		},
		Consumer: ConsumerConfig{
			MinBytes:          1,
			MaxBytes:          10 << 20,
			MaxWait:           500 * time.Millisecond,
			StartOffset:       -2,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
			Concurrency:       1,
		},
	}
}

// withDefaults 用默认值补齐未设置的字段
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	out := *c
	if len(out.Brokers) == 0 {
		out.Brokers = def.Brokers
	}
	if out.Producer.BatchSize == 0 {
		out.Producer.BatchSize = def.Producer.BatchSize
	}
	if out.Producer.BatchTimeout == 0 {
		out.Producer.BatchTimeout = def.Producer.BatchTimeout
	}
	if out.Producer.MaxRetries == 0 {
		out.Producer.MaxRetries = def.Producer.MaxRetries
	}
	if out.Producer.RequiredAcks == 0 {
		out.Producer.RequiredAcks = def.Producer.RequiredAcks
	}
	if out.Producer.WriteTimeout == 0 {
		out.Producer.WriteTimeout = def.Producer.WriteTimeout
	}
	if out.Consumer.MinBytes == 0 {
		out.Consumer.MinBytes = def.Consumer.MinBytes
	}
	if out.Consumer.MaxBytes == 0 {
		out.Consumer.MaxBytes = def.Consumer.MaxBytes
	}
	if out.Consumer.MaxWait == 0 {
		out.Consumer.MaxWait = def.Consumer.MaxWait
	}
	if out.Consumer.StartOffset == 0 {
		out.Consumer.StartOffset = def.Consumer.StartOffset
	}
	if out.Consumer.HeartbeatInterval == 0 {
		out.Consumer.HeartbeatInterval = def.Consumer.HeartbeatInterval
	}
	if out.Consumer.SessionTimeout == 0 {
		out.Consumer.SessionTimeout = def.Consumer.SessionTimeout
	}
	if out.Consumer.Concurrency == 0 {
		out.Consumer.Concurrency = def.Consumer.Concurrency
	}
	return &out
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	return nil
}
