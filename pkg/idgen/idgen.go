// Package idgen 提供全局唯一 ID 生成。
//
// 消息 ID 使用 UUIDv7：按生成时间排序（毫秒时间戳前缀 + 随机位），
// 全局唯一但不保证跨节点时钟有序。
package idgen

import (
	"github.com/google/uuid"
)

// Generator ID 生成器接口
type Generator interface {
	// NextID 生成下一个唯一 ID
	NextID() (string, error)
}

// MessageID UUIDv7 消息 ID 生成器
type MessageID struct{}

// NewMessageID 创建消息 ID 生成器
func NewMessageID() *MessageID {
	return &MessageID{}
}

// NextID 生成时间有序的消息 ID
func (g *MessageID) NextID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RequestID 生成一次请求的追踪 ID
func RequestID() string {
	return uuid.NewString()
}
