// Package dao 实现消息表的持久化访问。
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/lumochat/lumo/pkg/database/postgres"
)

// Message 消息行。二进制消息只落 file_id 与文件名，内容在文件服务。
type Message struct {
	MessageID string    `db:"message_id"`
	SessionID string    `db:"session_id"`
	SenderID  string    `db:"sender_id"`
	MsgType   string    `db:"msg_type"`
	Content   string    `db:"content"`
	FileID    string    `db:"file_id"`
	FileName  string    `db:"file_name"`
	Timestamp int64     `db:"ts"`
	CreatedAt time.Time `db:"created_at"`
}

// MessageDAO 消息表访问对象
type MessageDAO struct {
	db *postgres.Client
}

// NewMessageDAO 创建 DAO
func NewMessageDAO(db *postgres.Client) *MessageDAO {
	return &MessageDAO{db: db}
}

// Insert 插入消息
func (d *MessageDAO) Insert(ctx context.Context, msg *Message) error {
	_, err := d.db.Exec(ctx,
		`INSERT INTO messages (message_id, session_id, sender_id, msg_type, content, file_id, file_name, ts, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.MessageID, msg.SessionID, msg.SenderID, msg.MsgType,
		msg.Content, msg.FileID, msg.FileName, msg.Timestamp, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ExistsByID 消息是否已落库，消费侧用于重投去重
func (d *MessageDAO) ExistsByID(ctx context.Context, messageID string) (bool, error) {
	return d.db.Exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM messages WHERE message_id = $1)`, messageID)
}

// GetRecent 拉取会话最近 count 条消息，按时间升序返回
func (d *MessageDAO) GetRecent(ctx context.Context, sessionID string, count int) ([]*Message, error) {
	return postgres.QueryAll[Message](ctx, d.db,
		`SELECT message_id, session_id, sender_id, msg_type, content, file_id, file_name, ts, created_at
		 FROM (
		     SELECT * FROM messages WHERE session_id = $1
		     ORDER BY ts DESC, message_id DESC LIMIT $2
		 ) recent
		 ORDER BY ts ASC, message_id ASC`, sessionID, count)
}

// GetHistory 拉取时间区间（含端点）内的消息，按时间升序返回
func (d *MessageDAO) GetHistory(ctx context.Context, sessionID string, startTime, endTime int64) ([]*Message, error) {
	return postgres.QueryAll[Message](ctx, d.db,
		`SELECT message_id, session_id, sender_id, msg_type, content, file_id, file_name, ts, created_at
		 FROM messages
		 WHERE session_id = $1 AND ts >= $2 AND ts <= $3
		 ORDER BY ts ASC, message_id ASC`, sessionID, startTime, endTime)
}
