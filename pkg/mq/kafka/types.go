package kafka

import (
	"context"
	"time"
)

// Message 消息结构
type Message struct {
	// Topic 主题
	Topic string

	// Key 分区路由键，同一 Key 的消息进入同一分区
	Key []byte

	// Value 消息体
	Value []byte

	// Headers 消息头元数据
	Headers map[string]string

	// Partition 分区（消费时填充）
	Partition int

	// Offset 偏移量（消费时填充）
	Offset int64

	// Timestamp 时间戳
	Timestamp time.Time
}

// Handler 消息处理器。返回错误时不提交 offset，消息将被重新投递。
type Handler func(ctx context.Context, msg *Message) error

// Middleware 消费者中间件
type Middleware func(Handler) Handler

// ConsumerState 消费者状态
type ConsumerState int32

const (
	// ConsumerStateIdle 空闲
	ConsumerStateIdle ConsumerState = iota
	// ConsumerStateRunning 运行中
	ConsumerStateRunning
	// ConsumerStateStopping 停止中
	ConsumerStateStopping
	// ConsumerStateStopped 已停止
	ConsumerStateStopped
)

// String 返回状态字符串
func (s ConsumerState) String() string {
	switch s {
	case ConsumerStateIdle:
		return "idle"
	case ConsumerStateRunning:
		return "running"
	case ConsumerStateStopping:
		return "stopping"
	case ConsumerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ConsumerStats 消费者统计
type ConsumerStats struct {
	// MessagesConsumed 拉取的消息数
	MessagesConsumed int64
	// MessagesSucceeded 处理成功的消息数
	MessagesSucceeded int64
	// MessagesFailed 处理失败的消息数
	MessagesFailed int64
}

// ProducerStats 生产者统计
type ProducerStats struct {
	// MessagesProduced 发送的消息数
	MessagesProduced int64
	// MessagesSucceeded 发送成功的消息数
	MessagesSucceeded int64
	// MessagesFailed 发送失败的消息数
	MessagesFailed int64
}
