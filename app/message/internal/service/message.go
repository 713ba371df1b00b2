// Package service 实现消息服务的查询 RPC 方法。
package service

import (
	"context"
	"time"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/message/internal/dao"
	"github.com/lumochat/lumo/pkg/cache/lru"
	"github.com/lumochat/lumo/pkg/channel"
	"github.com/lumochat/lumo/pkg/logger"
)

// 单次查询的条数上限
const (
	defaultRecentCount = 20
	maxRecentCount     = 100
)

// 发送者档案缓存参数。档案改动不频繁，短 TTL 控制脏读窗口。
const (
	profileCacheSize = 4096
	profileCacheTTL  = time.Minute
)

// messageStore 消息表访问，由 dao.MessageDAO 实现
type messageStore interface {
	GetRecent(ctx context.Context, sessionID string, count int) ([]*dao.Message, error)
	GetHistory(ctx context.Context, sessionID string, startTime, endTime int64) ([]*dao.Message, error)
}

// channels 下游服务通道选择，由 channel.Manager 实现
type channels interface {
	Choose(serviceName string) channel.Client
}

// MessageService 消息查询服务。
// 查询结果用用户服务补发送者档案、用文件服务补二进制内容。
type MessageService struct {
	store    messageStore
	channels channels
	profiles *lru.Cache[string, *api.UserInfo]
	log      logger.Logger
}

// NewMessageService 创建服务
func NewMessageService(store messageStore, channels channels) *MessageService {
	return &MessageService{
		store:    store,
		channels: channels,
		profiles: lru.New[string, *api.UserInfo](&lru.Config{
			MaxSize:    profileCacheSize,
			DefaultTTL: profileCacheTTL,
		}),
		log: logger.Default().Named("message.service"),
	}
}

// GetRecentMsg 拉取会话最近 N 条消息，按时间升序
func (s *MessageService) GetRecentMsg(ctx context.Context, req *api.GetRecentMsgReq, resp *api.GetRecentMsgResp) error {
	count := req.Count
	if count <= 0 {
		count = defaultRecentCount
	}
	if count > maxRecentCount {
		count = maxRecentCount
	}

	rows, err := s.store.GetRecent(ctx, req.SessionID, count)
	if err != nil {
		s.log.Error("get recent messages failed",
			"request_id", req.RequestID, "session_id", req.SessionID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	resp.Messages = s.hydrate(ctx, req.RequestID, rows)
	resp.Ok()
	return nil
}

// GetHistoryMsg 拉取时间区间内的历史消息，按时间升序
func (s *MessageService) GetHistoryMsg(ctx context.Context, req *api.GetHistoryMsgReq, resp *api.GetHistoryMsgResp) error {
	if req.EndTime < req.StartTime {
		resp.Fail("end_time before start_time")
		return nil
	}

	rows, err := s.store.GetHistory(ctx, req.SessionID, req.StartTime, req.EndTime)
	if err != nil {
		s.log.Error("get history messages failed",
			"request_id", req.RequestID, "session_id", req.SessionID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	resp.Messages = s.hydrate(ctx, req.RequestID, rows)
	resp.Ok()
	return nil
}

// hydrate 把消息行还原为完整消息：批量补发送者档案与文件内容。
// 下游查询尽力而为，补不到的字段留空，消息本身照常返回。
func (s *MessageService) hydrate(ctx context.Context, requestID string, rows []*dao.Message) []*api.MessageInfo {
	senders := s.fetchSenders(ctx, requestID, rows)
	files := s.fetchFiles(ctx, requestID, rows)

	messages := make([]*api.MessageInfo, 0, len(rows))
	for _, row := range rows {
		body := api.MessageBody{
			Type:     api.MessageType(row.MsgType),
			Content:  row.Content,
			FileID:   row.FileID,
			FileName: row.FileName,
		}
		if file, ok := files[row.FileID]; ok {
			body.FileContents = file.Content
		}

		sender := senders[row.SenderID]
		if sender == nil {
			sender = &api.UserInfo{UserID: row.SenderID}
		}

		messages = append(messages, &api.MessageInfo{
			MessageID: row.MessageID,
			SessionID: row.SessionID,
			Timestamp: row.Timestamp,
			Sender:    sender,
			Body:      body,
		})
	}
	return messages
}

// fetchSenders 批量拉取发送者档案。命中缓存的直接用，
// 只对缺口走用户服务；远程失败时退化为仅缓存命中的部分。
func (s *MessageService) fetchSenders(ctx context.Context, requestID string, rows []*dao.Message) map[string]*api.UserInfo {
	senders := make(map[string]*api.UserInfo, len(rows))
	var missing []string
	for _, row := range rows {
		if _, ok := senders[row.SenderID]; ok {
			continue
		}
		if cached, ok := s.profiles.Get(row.SenderID); ok {
			senders[row.SenderID] = cached
			continue
		}
		senders[row.SenderID] = nil
		missing = append(missing, row.SenderID)
	}
	if len(missing) == 0 {
		return senders
	}

	ch := s.channels.Choose(api.ServiceUser)
	if ch == nil {
		s.log.Warn("user service unavailable, senders not hydrated", "request_id", requestID)
		return senders
	}

	req := &api.GetMultiUserInfoReq{
		BaseReq: api.BaseReq{RequestID: requestID},
		UserIDs: missing,
	}
	var resp api.GetMultiUserInfoResp
	if err := ch.Call(ctx, api.MethodGetMultiUserInfo, req, &resp); err != nil {
		s.log.Warn("fetch senders failed", "request_id", requestID, "error", err)
		return senders
	}
	if !resp.Success {
		return senders
	}

	for userID, info := range resp.Users {
		senders[userID] = info
		s.profiles.Set(userID, info)
	}
	return senders
}

// fetchFiles 批量拉取二进制内容，失败返回空表
func (s *MessageService) fetchFiles(ctx context.Context, requestID string, rows []*dao.Message) map[string]*api.FileData {
	fileIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.FileID != "" {
			fileIDs = append(fileIDs, row.FileID)
		}
	}
	if len(fileIDs) == 0 {
		return nil
	}

	ch := s.channels.Choose(api.ServiceFile)
	if ch == nil {
		s.log.Warn("file service unavailable, payloads not hydrated", "request_id", requestID)
		return nil
	}

	req := &api.GetMultiFileReq{
		BaseReq: api.BaseReq{RequestID: requestID},
		FileIDs: fileIDs,
	}
	var resp api.GetMultiFileResp
	if err := ch.Call(ctx, api.MethodGetMultiFile, req, &resp); err != nil {
		s.log.Warn("fetch payloads failed", "request_id", requestID, "error", err)
		return nil
	}
	if !resp.Success {
		return nil
	}
	return resp.Files
}
