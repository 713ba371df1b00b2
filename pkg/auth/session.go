// Package auth 维护登录会话与在线状态。
//
// 登录会话由用户服务签发、网关校验；两端共享同一套 Redis 键：
//
//	lumo:login_session:{session_id} -> user_id   （带 TTL）
//	lumo:online:{user_id}           -> "1"
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumochat/lumo/pkg/database/redis"
)

const (
	loginSessionKeyPrefix = "lumo:login_session:"
	onlineKeyPrefix       = "lumo:online:"

	// DefaultSessionTTL 登录会话默认有效期
	DefaultSessionTTL = 24 * time.Hour
)

// ErrSessionNotFound 登录会话不存在或已过期
var ErrSessionNotFound = errors.New("auth: login session not found")

// Store 封装会话与在线状态读写的 Redis 命令
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// SessionManager 登录会话与在线状态管理器
type SessionManager struct {
	store Store
	ttl   time.Duration
}

// NewSessionManager 创建管理器，ttl 为 0 时使用 DefaultSessionTTL
func NewSessionManager(store Store, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{store: store, ttl: ttl}
}

// Create 为用户签发登录会话，返回会话 ID
func (m *SessionManager) Create(ctx context.Context, userID string) (string, error) {
	sessionID := uuid.NewString()
	if err := m.store.Set(ctx, loginSessionKeyPrefix+sessionID, userID, m.ttl); err != nil {
		return "", fmt.Errorf("auth: create login session: %w", err)
	}
	return sessionID, nil
}

// Validate 校验会话并返回所属用户 ID
func (m *SessionManager) Validate(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionNotFound
	}
	userID, err := m.store.Get(ctx, loginSessionKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("auth: validate login session: %w", err)
	}
	return userID, nil
}

// Invalidate 注销会话
func (m *SessionManager) Invalidate(ctx context.Context, sessionID string) error {
	_, err := m.store.Del(ctx, loginSessionKeyPrefix+sessionID)
	return err
}

// SetOnline 标记用户在线
func (m *SessionManager) SetOnline(ctx context.Context, userID string) error {
	return m.store.Set(ctx, onlineKeyPrefix+userID, "1", 0)
}

// SetOffline 清除用户在线标记
func (m *SessionManager) SetOffline(ctx context.Context, userID string) error {
	_, err := m.store.Del(ctx, onlineKeyPrefix+userID)
	return err
}

// IsOnline 查询用户是否在线
func (m *SessionManager) IsOnline(ctx context.Context, userID string) (bool, error) {
	return m.store.Exists(ctx, onlineKeyPrefix+userID)
}
