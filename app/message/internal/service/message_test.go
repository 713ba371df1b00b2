package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/message/internal/dao"
	"github.com/lumochat/lumo/pkg/channel"
)

type fakeStore struct {
	rows     []*dao.Message
	queryErr error

	lastRecentCount int
}

func (f *fakeStore) GetRecent(_ context.Context, sessionID string, count int) ([]*dao.Message, error) {
	f.lastRecentCount = count
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var result []*dao.Message
	for _, row := range f.rows {
		if row.SessionID == sessionID {
			result = append(result, row)
		}
	}
	if len(result) > count {
		result = result[len(result)-count:]
	}
	return result, nil
}

func (f *fakeStore) GetHistory(_ context.Context, sessionID string, startTime, endTime int64) ([]*dao.Message, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var result []*dao.Message
	for _, row := range f.rows {
		if row.SessionID == sessionID && row.Timestamp >= startTime && row.Timestamp <= endTime {
			result = append(result, row)
		}
	}
	return result, nil
}

type fakeChannel struct {
	callErr error
	handler func(serviceMethod string, args, reply any)
}

func (f *fakeChannel) Call(_ context.Context, serviceMethod string, args, reply any) error {
	if f.callErr != nil {
		return f.callErr
	}
	if f.handler != nil {
		f.handler(serviceMethod, args, reply)
	}
	return nil
}

func (f *fakeChannel) Addr() string { return "fake:0" }
func (f *fakeChannel) Close() error { return nil }

type fakeChannels struct {
	byService map[string]*fakeChannel
}

func (f *fakeChannels) Choose(serviceName string) channel.Client {
	ch, ok := f.byService[serviceName]
	if !ok {
		return nil
	}
	return ch
}

func hydratingChannels() *fakeChannels {
	return &fakeChannels{byService: map[string]*fakeChannel{
		api.ServiceUser: {handler: func(serviceMethod string, args, reply any) {
			if serviceMethod != api.MethodGetMultiUserInfo {
				return
			}
			req := args.(*api.GetMultiUserInfoReq)
			resp := reply.(*api.GetMultiUserInfoResp)
			resp.Users = make(map[string]*api.UserInfo)
			for _, id := range req.UserIDs {
				resp.Users[id] = &api.UserInfo{UserID: id, Nickname: "nick-" + id}
			}
			resp.Ok()
		}},
		api.ServiceFile: {handler: func(serviceMethod string, args, reply any) {
			if serviceMethod != api.MethodGetMultiFile {
				return
			}
			req := args.(*api.GetMultiFileReq)
			resp := reply.(*api.GetMultiFileResp)
			resp.Files = make(map[string]*api.FileData)
			for _, id := range req.FileIDs {
				resp.Files[id] = &api.FileData{FileID: id, Content: []byte("payload-" + id)}
			}
			resp.Ok()
		}},
	}}
}

func testRows() []*dao.Message {
	return []*dao.Message{
		{MessageID: "m1", SessionID: "s1", SenderID: "u1", MsgType: "text", Content: "hi", Timestamp: 100},
		{MessageID: "m2", SessionID: "s1", SenderID: "u2", MsgType: "image", FileID: "f1", FileName: "a.png", Timestamp: 200},
		{MessageID: "m3", SessionID: "s2", SenderID: "u1", MsgType: "text", Content: "other", Timestamp: 300},
	}
}

func TestGetRecentMsgHydrates(t *testing.T) {
	store := &fakeStore{rows: testRows()}
	svc := NewMessageService(store, hydratingChannels())

	var resp api.GetRecentMsgResp
	req := &api.GetRecentMsgReq{SessionID: "s1", Count: 10}
	require.NoError(t, svc.GetRecentMsg(context.Background(), req, &resp))
	require.True(t, resp.Success, resp.Errmsg)
	require.Len(t, resp.Messages, 2)

	first := resp.Messages[0]
	assert.Equal(t, "m1", first.MessageID)
	assert.Equal(t, "nick-u1", first.Sender.Nickname)
	assert.Equal(t, "hi", first.Body.Content)

	second := resp.Messages[1]
	assert.Equal(t, "m2", second.MessageID)
	assert.Equal(t, api.MessageTypeImage, second.Body.Type)
	assert.Equal(t, []byte("payload-f1"), second.Body.FileContents)
	assert.Equal(t, "a.png", second.Body.FileName)
}

func TestGetRecentMsgCountBounds(t *testing.T) {
	store := &fakeStore{}
	svc := NewMessageService(store, &fakeChannels{})

	var resp api.GetRecentMsgResp
	require.NoError(t, svc.GetRecentMsg(context.Background(),
		&api.GetRecentMsgReq{SessionID: "s1"}, &resp))
	assert.Equal(t, defaultRecentCount, store.lastRecentCount)

	require.NoError(t, svc.GetRecentMsg(context.Background(),
		&api.GetRecentMsgReq{SessionID: "s1", Count: 10000}, &resp))
	assert.Equal(t, maxRecentCount, store.lastRecentCount)
}

func TestGetHistoryMsg(t *testing.T) {
	store := &fakeStore{rows: testRows()}
	svc := NewMessageService(store, hydratingChannels())

	var resp api.GetHistoryMsgResp
	req := &api.GetHistoryMsgReq{SessionID: "s1", StartTime: 100, EndTime: 150}
	require.NoError(t, svc.GetHistoryMsg(context.Background(), req, &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "m1", resp.Messages[0].MessageID)
}

func TestGetHistoryMsgInvalidRange(t *testing.T) {
	svc := NewMessageService(&fakeStore{}, &fakeChannels{})

	var resp api.GetHistoryMsgResp
	req := &api.GetHistoryMsgReq{SessionID: "s1", StartTime: 200, EndTime: 100}
	require.NoError(t, svc.GetHistoryMsg(context.Background(), req, &resp))
	assert.False(t, resp.Success)
}

func TestHydrateSurvivesDownstreamOutage(t *testing.T) {
	store := &fakeStore{rows: testRows()}
	chans := &fakeChannels{byService: map[string]*fakeChannel{
		api.ServiceUser: {callErr: errors.New("timeout")},
		api.ServiceFile: {callErr: errors.New("timeout")},
	}}
	svc := NewMessageService(store, chans)

	var resp api.GetRecentMsgResp
	req := &api.GetRecentMsgReq{SessionID: "s1", Count: 10}
	require.NoError(t, svc.GetRecentMsg(context.Background(), req, &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Messages, 2)

	// 补不全时退化为只含 ID 的发送者与无内容的文件引用
	assert.Equal(t, "u1", resp.Messages[0].Sender.UserID)
	assert.Empty(t, resp.Messages[0].Sender.Nickname)
	assert.Empty(t, resp.Messages[1].Body.FileContents)
	assert.Equal(t, "f1", resp.Messages[1].Body.FileID)
}

func TestSenderProfileCached(t *testing.T) {
	store := &fakeStore{rows: []*dao.Message{
		{MessageID: "m1", SessionID: "s1", SenderID: "u1", MsgType: "text", Content: "hi", Timestamp: 100},
	}}

	var userCalls int
	chans := &fakeChannels{byService: map[string]*fakeChannel{
		api.ServiceUser: {handler: func(serviceMethod string, args, reply any) {
			if serviceMethod != api.MethodGetMultiUserInfo {
				return
			}
			userCalls++
			req := args.(*api.GetMultiUserInfoReq)
			resp := reply.(*api.GetMultiUserInfoResp)
			resp.Users = map[string]*api.UserInfo{}
			for _, id := range req.UserIDs {
				resp.Users[id] = &api.UserInfo{UserID: id, Nickname: "nick-" + id}
			}
			resp.Ok()
		}},
	}}
	svc := NewMessageService(store, chans)

	req := &api.GetRecentMsgReq{SessionID: "s1", Count: 10}
	var first api.GetRecentMsgResp
	require.NoError(t, svc.GetRecentMsg(context.Background(), req, &first))
	var second api.GetRecentMsgResp
	require.NoError(t, svc.GetRecentMsg(context.Background(), req, &second))

	assert.Equal(t, 1, userCalls)
	assert.Equal(t, "nick-u1", second.Messages[0].Sender.Nickname)
}

func TestGetRecentMsgStoreFailure(t *testing.T) {
	svc := NewMessageService(&fakeStore{queryErr: errors.New("db down")}, &fakeChannels{})

	var resp api.GetRecentMsgResp
	require.NoError(t, svc.GetRecentMsg(context.Background(),
		&api.GetRecentMsgReq{SessionID: "s1"}, &resp))
	assert.False(t, resp.Success)
}
