// Package service 实现会话服务的 RPC 方法：会话管理与消息路由。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/chatsession/internal/dao"
	"github.com/lumochat/lumo/pkg/channel"
	"github.com/lumochat/lumo/pkg/idgen"
	"github.com/lumochat/lumo/pkg/logger"
)

// sessionStore 会话表访问，由 dao.SessionDAO 实现
type sessionStore interface {
	CreateSession(ctx context.Context, session *dao.Session, memberIDs []string) error
	GetMembers(ctx context.Context, sessionID string) ([]string, error)
	GetSessionsForUser(ctx context.Context, userID string) ([]*dao.Session, error)
}

// channels 下游服务通道选择，由 channel.Manager 实现
type channels interface {
	Choose(serviceName string) channel.Client
}

// publisher 消息队列发布，由 kafka.Client 实现。
// 同步确认语义：返回 nil 即已持久化。
type publisher interface {
	PublishWithKey(ctx context.Context, topic, key string, value []byte) error
}

// ChatSessionService 会话服务
type ChatSessionService struct {
	store    sessionStore
	channels channels
	mq       publisher
	ids      idgen.Generator
	log      logger.Logger
}

// NewChatSessionService 创建服务
func NewChatSessionService(store sessionStore, channels channels, mq publisher) *ChatSessionService {
	return &ChatSessionService{
		store:    store,
		channels: channels,
		mq:       mq,
		ids:      idgen.NewMessageID(),
		log:      logger.Default().Named("chatsession.service"),
	}
}

// Create 创建群聊会话
func (s *ChatSessionService) Create(ctx context.Context, req *api.ChatSessionCreateReq, resp *api.ChatSessionCreateResp) error {
	if req.SessionName == "" {
		resp.Fail("session name is required")
		return nil
	}
	if len(req.MemberIDs) == 0 {
		resp.Fail("at least one member is required")
		return nil
	}

	session := &dao.Session{
		SessionID:   uuid.NewString(),
		SessionName: req.SessionName,
		Single:      false,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateSession(ctx, session, req.MemberIDs); err != nil {
		s.log.Error("create session failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	s.log.Info("chat session created",
		"session_id", session.SessionID, "members", len(req.MemberIDs))
	resp.SessionID = session.SessionID
	resp.Ok()
	return nil
}

// GetMember 查询会话成员
func (s *ChatSessionService) GetMember(ctx context.Context, req *api.GetChatSessionMemberReq, resp *api.GetChatSessionMemberResp) error {
	memberIDs, err := s.store.GetMembers(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, dao.ErrSessionNotFound) {
			resp.Fail("session not found")
			return nil
		}
		s.log.Error("get members failed",
			"request_id", req.RequestID, "session_id", req.SessionID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	resp.MemberIDs = memberIDs
	resp.Ok()
	return nil
}

// GetList 查询用户的会话列表，并尽力附带每个会话的最近一条消息。
// 消息服务不可用时列表照常返回，只是没有 last_message。
func (s *ChatSessionService) GetList(ctx context.Context, req *api.GetChatSessionListReq, resp *api.GetChatSessionListResp) error {
	sessions, err := s.store.GetSessionsForUser(ctx, req.UserID)
	if err != nil {
		s.log.Error("get session list failed",
			"request_id", req.RequestID, "user_id", req.UserID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	result := make([]*api.ChatSessionInfo, 0, len(sessions))
	for _, session := range sessions {
		info := &api.ChatSessionInfo{
			SessionID:   session.SessionID,
			SessionName: session.SessionName,
			Single:      session.Single,
		}
		info.LastMessage = s.lastMessage(ctx, req.RequestID, session.SessionID)
		result = append(result, info)
	}

	resp.Sessions = result
	resp.Ok()
	return nil
}

// lastMessage 尽力取会话最近一条消息，失败返回 nil
func (s *ChatSessionService) lastMessage(ctx context.Context, requestID, sessionID string) *api.MessageInfo {
	ch := s.channels.Choose(api.ServiceMessage)
	if ch == nil {
		return nil
	}

	req := &api.GetRecentMsgReq{
		BaseReq:   api.BaseReq{RequestID: requestID},
		SessionID: sessionID,
		Count:     1,
	}
	var msgResp api.GetRecentMsgResp
	if err := ch.Call(ctx, api.MethodGetRecentMsg, req, &msgResp); err != nil {
		s.log.Warn("fetch last message failed",
			"request_id", requestID, "session_id", sessionID, "error", err)
		return nil
	}
	if !msgResp.Success || len(msgResp.Messages) == 0 {
		return nil
	}
	return msgResp.Messages[len(msgResp.Messages)-1]
}

// TransmitTarget 路由一条新消息：取发送者档案、定稿消息、查成员、
// 持久化入队后才返回消息与转发目标。入队失败整个请求失败，
// 绝不在消息未持久化时报告成功。
func (s *ChatSessionService) TransmitTarget(ctx context.Context, req *api.TransmitTargetReq, resp *api.TransmitTargetResp) error {
	if !req.Body.Type.Valid() {
		resp.Fail("unknown message type")
		return nil
	}

	sender, errmsg := s.senderProfile(ctx, req)
	if sender == nil {
		resp.Fail(errmsg)
		return nil
	}

	messageID, err := s.ids.NextID()
	if err != nil {
		s.log.Error("generate message id failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}
	message := &api.MessageInfo{
		MessageID: messageID,
		SessionID: req.SessionID,
		Timestamp: time.Now().Unix(),
		Sender:    sender,
		Body:      req.Body,
	}

	targetIDs, err := s.store.GetMembers(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, dao.ErrSessionNotFound) {
			resp.Fail("session not found")
			return nil
		}
		s.log.Error("get members failed",
			"request_id", req.RequestID, "session_id", req.SessionID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	payload, err := encodeMessage(message)
	if err != nil {
		s.log.Error("encode message failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}
	// 会话 ID 作分区键，保证同会话消息在队列内有序
	if err := s.mq.PublishWithKey(ctx, api.TopicNewMessage, req.SessionID, payload); err != nil {
		s.log.Error("publish message failed",
			"request_id", req.RequestID, "message_id", messageID, "error", err)
		resp.Fail("message not accepted")
		return nil
	}

	s.log.Info("message routed",
		"request_id", req.RequestID, "message_id", messageID,
		"session_id", req.SessionID, "targets", len(targetIDs))
	resp.Message = message
	resp.TargetIDs = targetIDs
	resp.Ok()
	return nil
}

// senderProfile 经用户服务取发送者档案，失败返回 nil 与失败原因
func (s *ChatSessionService) senderProfile(ctx context.Context, req *api.TransmitTargetReq) (*api.UserInfo, string) {
	ch := s.channels.Choose(api.ServiceUser)
	if ch == nil {
		s.log.Error("user service unavailable", "request_id", req.RequestID)
		return nil, "user service unavailable"
	}

	userReq := &api.GetUserInfoReq{
		BaseReq: api.BaseReq{RequestID: req.RequestID},
		UserID:  req.UserID,
	}
	var userResp api.GetUserInfoResp
	if err := ch.Call(ctx, api.MethodGetUserInfo, userReq, &userResp); err != nil {
		s.log.Error("fetch sender profile failed",
			"request_id", req.RequestID, "user_id", req.UserID, "error", err)
		return nil, "user service unavailable"
	}
	if !userResp.Success || userResp.User == nil {
		return nil, "sender not found"
	}
	return userResp.User, ""
}

// encodeMessage 路由消息的队列编码
func encodeMessage(message *api.MessageInfo) ([]byte, error) {
	return json.Marshal(message)
}
