package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/user/internal/dao"
	"github.com/lumochat/lumo/pkg/crypto"
)

type fakeStore struct {
	users     map[string]*dao.User // user_id -> user
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*dao.User)}
}

func (f *fakeStore) Create(_ context.Context, user *dao.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.users[user.UserID] = user
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, userID string) (*dao.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, dao.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeStore) GetByNickname(_ context.Context, nickname string) (*dao.User, error) {
	for _, user := range f.users {
		if user.Nickname == nickname {
			return user, nil
		}
	}
	return nil, dao.ErrUserNotFound
}

func (f *fakeStore) GetMulti(_ context.Context, userIDs []string) ([]*dao.User, error) {
	var result []*dao.User
	for _, id := range userIDs {
		if user, ok := f.users[id]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

func (f *fakeStore) NicknameExists(_ context.Context, nickname string) (bool, error) {
	_, err := f.GetByNickname(context.Background(), nickname)
	return err == nil, nil
}

type fakeIssuer struct {
	sessionID string
	err       error
	userID    string
}

func (f *fakeIssuer) Create(_ context.Context, userID string) (string, error) {
	f.userID = userID
	return f.sessionID, f.err
}

func TestRegisterAndLogin(t *testing.T) {
	store := newFakeStore()
	issuer := &fakeIssuer{sessionID: "sess-1"}
	svc := NewUserService(store, issuer)
	ctx := context.Background()

	var regResp api.UserRegisterResp
	err := svc.Register(ctx, &api.UserRegisterReq{Nickname: "alice", Password: "secret"}, &regResp)
	require.NoError(t, err)
	require.True(t, regResp.Success, regResp.Errmsg)
	require.NotEmpty(t, regResp.UserID)

	// 落库的是散列而不是明文
	stored := store.users[regResp.UserID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret", stored.PasswordHash)
	assert.NoError(t, crypto.VerifyPassword("secret", stored.PasswordHash))

	var loginResp api.UserLoginResp
	err = svc.Login(ctx, &api.UserLoginReq{Nickname: "alice", Password: "secret"}, &loginResp)
	require.NoError(t, err)
	require.True(t, loginResp.Success, loginResp.Errmsg)
	assert.Equal(t, regResp.UserID, loginResp.UserID)
	assert.Equal(t, "sess-1", loginResp.LoginSessionID)
	assert.Equal(t, regResp.UserID, issuer.userID)
}

func TestRegisterDuplicateNickname(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, &fakeIssuer{})
	ctx := context.Background()

	var first api.UserRegisterResp
	require.NoError(t, svc.Register(ctx, &api.UserRegisterReq{Nickname: "bob", Password: "pw"}, &first))
	require.True(t, first.Success)

	var second api.UserRegisterResp
	require.NoError(t, svc.Register(ctx, &api.UserRegisterReq{Nickname: "bob", Password: "pw2"}, &second))
	assert.False(t, second.Success)
	assert.Contains(t, second.Errmsg, "taken")
}

func TestRegisterEmptyFields(t *testing.T) {
	svc := NewUserService(newFakeStore(), &fakeIssuer{})

	var resp api.UserRegisterResp
	require.NoError(t, svc.Register(context.Background(), &api.UserRegisterReq{Nickname: "", Password: "pw"}, &resp))
	assert.False(t, resp.Success)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, &fakeIssuer{sessionID: "sess"})
	ctx := context.Background()

	var regResp api.UserRegisterResp
	require.NoError(t, svc.Register(ctx, &api.UserRegisterReq{Nickname: "carol", Password: "right"}, &regResp))

	var resp api.UserLoginResp
	require.NoError(t, svc.Login(ctx, &api.UserLoginReq{Nickname: "carol", Password: "wrong"}, &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, resp.LoginSessionID)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := NewUserService(newFakeStore(), &fakeIssuer{})

	var resp api.UserLoginResp
	require.NoError(t, svc.Login(context.Background(), &api.UserLoginReq{Nickname: "nobody", Password: "pw"}, &resp))
	assert.False(t, resp.Success)
	// 不泄露用户是否存在
	assert.Equal(t, "invalid nickname or password", resp.Errmsg)
}

func TestLoginSessionIssueFails(t *testing.T) {
	store := newFakeStore()
	issuer := &fakeIssuer{err: errors.New("redis down")}
	svc := NewUserService(store, issuer)
	ctx := context.Background()

	var regResp api.UserRegisterResp
	require.NoError(t, svc.Register(ctx, &api.UserRegisterReq{Nickname: "dave", Password: "pw"}, &regResp))

	var resp api.UserLoginResp
	require.NoError(t, svc.Login(ctx, &api.UserLoginReq{Nickname: "dave", Password: "pw"}, &resp))
	assert.False(t, resp.Success)
}

func TestGetUserInfo(t *testing.T) {
	store := newFakeStore()
	store.users["u1"] = &dao.User{UserID: "u1", Nickname: "eve", Description: "hi", AvatarID: "f1"}
	svc := NewUserService(store, &fakeIssuer{})

	var resp api.GetUserInfoResp
	require.NoError(t, svc.GetUserInfo(context.Background(), &api.GetUserInfoReq{UserID: "u1"}, &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.User)
	assert.Equal(t, "eve", resp.User.Nickname)
	assert.Equal(t, "f1", resp.User.AvatarID)

	var missing api.GetUserInfoResp
	require.NoError(t, svc.GetUserInfo(context.Background(), &api.GetUserInfoReq{UserID: "nope"}, &missing))
	assert.False(t, missing.Success)
}

func TestGetMultiUserInfoSkipsMissing(t *testing.T) {
	store := newFakeStore()
	store.users["u1"] = &dao.User{UserID: "u1", Nickname: "a"}
	store.users["u2"] = &dao.User{UserID: "u2", Nickname: "b"}
	svc := NewUserService(store, &fakeIssuer{})

	var resp api.GetMultiUserInfoResp
	req := &api.GetMultiUserInfoReq{UserIDs: []string{"u1", "missing", "u2"}}
	require.NoError(t, svc.GetMultiUserInfo(context.Background(), req, &resp))
	require.True(t, resp.Success)
	assert.Len(t, resp.Users, 2)
	assert.Equal(t, "a", resp.Users["u1"].Nickname)
	assert.NotContains(t, resp.Users, "missing")
}
