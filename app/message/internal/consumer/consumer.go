// Package consumer 消费新消息队列并异步落库。
//
// 队列是至少一次投递，重投的消息按 message_id 去重后直接确认。
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/message/internal/dao"
	"github.com/lumochat/lumo/pkg/channel"
	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/mq/kafka"
)

// messageStore 消息表访问，由 dao.MessageDAO 实现
type messageStore interface {
	Insert(ctx context.Context, msg *dao.Message) error
	ExistsByID(ctx context.Context, messageID string) (bool, error)
}

// channels 下游服务通道选择，由 channel.Manager 实现
type channels interface {
	Choose(serviceName string) channel.Client
}

// Persister 把队列中的路由消息写入消息表。
// 二进制消息先上传文件服务换取 file_id，再落引用行。
type Persister struct {
	store    messageStore
	channels channels
	log      logger.Logger
}

// NewPersister 创建落库处理器
func NewPersister(store messageStore, channels channels) *Persister {
	return &Persister{
		store:    store,
		channels: channels,
		log:      logger.Default().Named("message.consumer"),
	}
}

// Handle 实现 kafka.Handler。返回错误时不提交 offset，消息会被重投。
func (p *Persister) Handle(ctx context.Context, msg *kafka.Message) error {
	var message api.MessageInfo
	if err := json.Unmarshal(msg.Value, &message); err != nil {
		// 无法解析的消息重投也不会成功，记录后确认
		p.log.Error("drop malformed message", "offset", msg.Offset, "error", err)
		return nil
	}
	if message.MessageID == "" || message.Sender == nil {
		p.log.Error("drop incomplete message", "offset", msg.Offset)
		return nil
	}

	exists, err := p.store.ExistsByID(ctx, message.MessageID)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		p.log.Debug("skip duplicate message", "message_id", message.MessageID)
		return nil
	}

	row := &dao.Message{
		MessageID: message.MessageID,
		SessionID: message.SessionID,
		SenderID:  message.Sender.UserID,
		MsgType:   string(message.Body.Type),
		Timestamp: message.Timestamp,
		CreatedAt: time.Now(),
	}

	switch message.Body.Type {
	case api.MessageTypeText:
		row.Content = message.Body.Content
	case api.MessageTypeImage, api.MessageTypeFile, api.MessageTypeSpeech:
		fileID, err := p.uploadPayload(ctx, &message)
		if err != nil {
			return err
		}
		row.FileID = fileID
		row.FileName = message.Body.FileName
	default:
		p.log.Error("drop message with unknown type",
			"message_id", message.MessageID, "type", message.Body.Type)
		return nil
	}

	if err := p.store.Insert(ctx, row); err != nil {
		return fmt.Errorf("insert message %s: %w", message.MessageID, err)
	}
	p.log.Info("message persisted",
		"message_id", message.MessageID, "session_id", message.SessionID,
		"type", row.MsgType)
	return nil
}

// uploadPayload 把二进制内容上传文件服务，返回 file_id
func (p *Persister) uploadPayload(ctx context.Context, message *api.MessageInfo) (string, error) {
	ch := p.channels.Choose(api.ServiceFile)
	if ch == nil {
		return "", fmt.Errorf("file service unavailable for message %s", message.MessageID)
	}

	req := &api.PutFileReq{
		FileName: message.Body.FileName,
		Content:  message.Body.FileContents,
	}
	var resp api.PutFileResp
	if err := ch.Call(ctx, api.MethodPutFile, req, &resp); err != nil {
		return "", fmt.Errorf("upload payload of message %s: %w", message.MessageID, err)
	}
	if !resp.Success {
		return "", fmt.Errorf("upload payload of message %s rejected: %s", message.MessageID, resp.Errmsg)
	}
	return resp.FileID, nil
}
