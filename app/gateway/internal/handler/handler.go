// Package handler 实现网关的 HTTP 接入面、WebSocket 长连接与消息下推。
package handler

import (
	"context"
	"errors"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/gateway/internal/connection"
	"github.com/lumochat/lumo/pkg/auth"
	"github.com/lumochat/lumo/pkg/channel"
	"github.com/lumochat/lumo/pkg/conc"
	"github.com/lumochat/lumo/pkg/logger"
)

// channels 下游服务通道选择，由 channel.Manager 实现
type channels interface {
	Choose(serviceName string) channel.Client
}

// sessionAuth 登录会话校验与在线状态，由 auth.SessionManager 实现
type sessionAuth interface {
	Validate(ctx context.Context, sessionID string) (string, error)
	Invalidate(ctx context.Context, sessionID string) error
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// pushPoolSize 下推协程池容量，限制单网关的并发推送量
const pushPoolSize = 256

// Gateway 网关处理器
type Gateway struct {
	channels channels
	sessions sessionAuth
	registry *connection.Registry
	pushPool *conc.Pool
	log      logger.Logger
}

// NewGateway 创建网关处理器
func NewGateway(channels channels, sessions sessionAuth) (*Gateway, error) {
	pool, err := conc.NewPool(pushPoolSize)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		channels: channels,
		sessions: sessions,
		registry: connection.NewRegistry(),
		pushPool: pool,
		log:      logger.Default().Named("gateway"),
	}, nil
}

// Registry 暴露连接注册表
func (g *Gateway) Registry() *connection.Registry {
	return g.registry
}

// Close 释放下推协程池
func (g *Gateway) Close() error {
	g.pushPool.Release()
	return nil
}

// authenticate 校验登录会话并核对归属用户
func (g *Gateway) authenticate(ctx context.Context, loginSessionID, userID string) error {
	sessionUser, err := g.sessions.Validate(ctx, loginSessionID)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return errors.New("not logged in")
		}
		g.log.Error("session validation failed", "error", err)
		return errors.New("internal error")
	}
	if sessionUser != userID {
		return errors.New("session does not belong to user")
	}
	return nil
}

// call 经通道管理器调用下游服务
func (g *Gateway) call(ctx context.Context, serviceName, serviceMethod string, args, reply any) error {
	ch := g.channels.Choose(serviceName)
	if ch == nil {
		return errors.New(serviceName + " service unavailable")
	}
	return ch.Call(ctx, serviceMethod, args, reply)
}

// fanOut 把已持久化的消息推给除发送者外的全部在线目标。
// 单个目标失败只记日志，不影响其他目标，也不影响发送方应答。
func (g *Gateway) fanOut(message *api.MessageInfo, targetIDs []string) {
	senderID := ""
	if message.Sender != nil {
		senderID = message.Sender.UserID
	}

	push := &api.WSPush{Type: api.WSTypeMessage, Message: message}
	for _, targetID := range targetIDs {
		if targetID == senderID {
			continue
		}
		conn := g.registry.ByUser(targetID)
		if conn == nil {
			// 离线目标走落库的历史消息
			continue
		}
		target := targetID
		c := conn
		if err := g.pushPool.Submit(func() {
			if err := c.WriteJSON(push); err != nil {
				g.log.Warn("push failed",
					"message_id", message.MessageID, "target", target, "error", err)
			}
		}); err != nil {
			g.log.Warn("push submit failed",
				"message_id", message.MessageID, "target", target, "error", err)
		}
	}
}
