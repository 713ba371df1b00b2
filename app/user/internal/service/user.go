// Package service 实现用户服务的 RPC 方法。
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/user/internal/dao"
	"github.com/lumochat/lumo/pkg/crypto"
	"github.com/lumochat/lumo/pkg/logger"
)

// userStore 用户表访问，由 dao.UserDAO 实现
type userStore interface {
	Create(ctx context.Context, user *dao.User) error
	GetByID(ctx context.Context, userID string) (*dao.User, error)
	GetByNickname(ctx context.Context, nickname string) (*dao.User, error)
	GetMulti(ctx context.Context, userIDs []string) ([]*dao.User, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
}

// sessionIssuer 登录会话签发，由 auth.SessionManager 实现
type sessionIssuer interface {
	Create(ctx context.Context, userID string) (string, error)
}

// UserService 用户注册、登录与档案查询
type UserService struct {
	store    userStore
	sessions sessionIssuer
	hasher   *crypto.PasswordHasher
	log      logger.Logger
}

// NewUserService 创建服务
func NewUserService(store userStore, sessions sessionIssuer) *UserService {
	return &UserService{
		store:    store,
		sessions: sessions,
		hasher:   crypto.NewPasswordHasher(),
		log:      logger.Default().Named("user.service"),
	}
}

// Register 注册新用户
func (s *UserService) Register(ctx context.Context, req *api.UserRegisterReq, resp *api.UserRegisterResp) error {
	if req.Nickname == "" || req.Password == "" {
		resp.Fail("nickname and password are required")
		return nil
	}

	exists, err := s.store.NicknameExists(ctx, req.Nickname)
	if err != nil {
		s.log.Error("nickname lookup failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}
	if exists {
		resp.Fail("nickname already taken")
		return nil
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.log.Error("password hash failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	user := &dao.User{
		UserID:       uuid.NewString(),
		Nickname:     req.Nickname,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		s.log.Error("create user failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	s.log.Info("user registered", "user_id", user.UserID, "nickname", user.Nickname)
	resp.UserID = user.UserID
	resp.Ok()
	return nil
}

// Login 校验口令并签发登录会话
func (s *UserService) Login(ctx context.Context, req *api.UserLoginReq, resp *api.UserLoginResp) error {
	user, err := s.store.GetByNickname(ctx, req.Nickname)
	if err != nil {
		if errors.Is(err, dao.ErrUserNotFound) {
			resp.Fail("invalid nickname or password")
			return nil
		}
		s.log.Error("user lookup failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	if err := s.hasher.Verify(req.Password, user.PasswordHash); err != nil {
		resp.Fail("invalid nickname or password")
		return nil
	}

	sessionID, err := s.sessions.Create(ctx, user.UserID)
	if err != nil {
		s.log.Error("create login session failed",
			"request_id", req.RequestID, "user_id", user.UserID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	s.log.Info("user logged in", "user_id", user.UserID)
	resp.UserID = user.UserID
	resp.LoginSessionID = sessionID
	resp.Ok()
	return nil
}

// GetUserInfo 查询单个用户档案
func (s *UserService) GetUserInfo(ctx context.Context, req *api.GetUserInfoReq, resp *api.GetUserInfoResp) error {
	user, err := s.store.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, dao.ErrUserNotFound) {
			resp.Fail("user not found")
			return nil
		}
		s.log.Error("user lookup failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	resp.User = toUserInfo(user)
	resp.Ok()
	return nil
}

// GetMultiUserInfo 批量查询用户档案，缺失的 ID 不在结果中
func (s *UserService) GetMultiUserInfo(ctx context.Context, req *api.GetMultiUserInfoReq, resp *api.GetMultiUserInfoResp) error {
	users, err := s.store.GetMulti(ctx, req.UserIDs)
	if err != nil {
		s.log.Error("multi user lookup failed", "request_id", req.RequestID, "error", err)
		resp.Fail("internal error")
		return nil
	}

	result := make(map[string]*api.UserInfo, len(users))
	for _, user := range users {
		result[user.UserID] = toUserInfo(user)
	}
	resp.Users = result
	resp.Ok()
	return nil
}

func toUserInfo(user *dao.User) *api.UserInfo {
	return &api.UserInfo{
		UserID:      user.UserID,
		Nickname:    user.Nickname,
		Description: user.Description,
		Phone:       user.Phone,
		AvatarID:    user.AvatarID,
	}
}
