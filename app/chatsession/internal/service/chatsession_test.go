package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/chatsession/internal/dao"
	"github.com/lumochat/lumo/pkg/channel"
)

type fakeSessionStore struct {
	sessions  map[string]*dao.Session
	members   map[string][]string
	createErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*dao.Session),
		members:  make(map[string][]string),
	}
}

func (f *fakeSessionStore) CreateSession(_ context.Context, session *dao.Session, memberIDs []string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.sessions[session.SessionID] = session
	f.members[session.SessionID] = memberIDs
	return nil
}

func (f *fakeSessionStore) GetMembers(_ context.Context, sessionID string) ([]string, error) {
	if _, ok := f.sessions[sessionID]; !ok {
		return nil, dao.ErrSessionNotFound
	}
	return f.members[sessionID], nil
}

func (f *fakeSessionStore) GetSessionsForUser(_ context.Context, userID string) ([]*dao.Session, error) {
	var result []*dao.Session
	for id, members := range f.members {
		for _, m := range members {
			if m == userID {
				result = append(result, f.sessions[id])
				break
			}
		}
	}
	return result, nil
}

// fakeChannel 固定应答的调用通道
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

// fakeChannels 按服务名返回预置通道
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

type publishedMsg struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	published []publishedMsg
	err       error
}

func (f *fakePublisher) PublishWithKey(_ context.Context, topic, key string, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMsg{topic: topic, key: key, value: value})
	return nil
}

func userChannel(user *api.UserInfo) *fakeChannel {
	return &fakeChannel{handler: func(serviceMethod string, _, reply any) {
		if serviceMethod != api.MethodGetUserInfo {
			return
		}
		resp := reply.(*api.GetUserInfoResp)
		if user == nil {
			resp.Fail("user not found")
			return
		}
		resp.User = user
		resp.Ok()
	}}
}

func newRouterFixture(t *testing.T) (*ChatSessionService, *fakeSessionStore, *fakePublisher) {
	t.Helper()
	store := newFakeSessionStore()
	store.sessions["sess-1"] = &dao.Session{SessionID: "sess-1", SessionName: "room"}
	store.members["sess-1"] = []string{"u1", "u2", "u3"}

	chans := &fakeChannels{byService: map[string]*fakeChannel{
		api.ServiceUser: userChannel(&api.UserInfo{UserID: "u1", Nickname: "alice"}),
	}}
	pub := &fakePublisher{}
	return NewChatSessionService(store, chans, pub), store, pub
}

func TestTransmitTarget(t *testing.T) {
	svc, _, pub := newRouterFixture(t)

	req := &api.TransmitTargetReq{
		UserID:    "u1",
		SessionID: "sess-1",
		Body:      api.MessageBody{Type: api.MessageTypeText, Content: "hello"},
	}
	var resp api.TransmitTargetResp
	require.NoError(t, svc.TransmitTarget(context.Background(), req, &resp))
	require.True(t, resp.Success, resp.Errmsg)

	require.NotNil(t, resp.Message)
	assert.NotEmpty(t, resp.Message.MessageID)
	assert.Equal(t, "sess-1", resp.Message.SessionID)
	assert.NotZero(t, resp.Message.Timestamp)
	require.NotNil(t, resp.Message.Sender)
	assert.Equal(t, "alice", resp.Message.Sender.Nickname)
	// 目标含发送者本人
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, resp.TargetIDs)

	// 入队的与应答的是同一条消息，分区键为会话 ID
	require.Len(t, pub.published, 1)
	assert.Equal(t, api.TopicNewMessage, pub.published[0].topic)
	assert.Equal(t, "sess-1", pub.published[0].key)
	var queued api.MessageInfo
	require.NoError(t, json.Unmarshal(pub.published[0].value, &queued))
	assert.Equal(t, resp.Message.MessageID, queued.MessageID)
	assert.Equal(t, "hello", queued.Body.Content)
}

func TestTransmitTargetPublishFailureIsTerminal(t *testing.T) {
	svc, _, pub := newRouterFixture(t)
	pub.err = errors.New("broker down")

	req := &api.TransmitTargetReq{
		UserID:    "u1",
		SessionID: "sess-1",
		Body:      api.MessageBody{Type: api.MessageTypeText, Content: "hi"},
	}
	var resp api.TransmitTargetResp
	require.NoError(t, svc.TransmitTarget(context.Background(), req, &resp))
	// 未持久化绝不报成功，也不给出转发目标
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Message)
	assert.Empty(t, resp.TargetIDs)
}

func TestTransmitTargetSenderLookupFailureIsTerminal(t *testing.T) {
	store := newFakeSessionStore()
	store.sessions["sess-1"] = &dao.Session{SessionID: "sess-1"}
	store.members["sess-1"] = []string{"u1", "u2"}
	pub := &fakePublisher{}

	t.Run("user service down", func(t *testing.T) {
		chans := &fakeChannels{byService: map[string]*fakeChannel{
			api.ServiceUser: {callErr: errors.New("connection refused")},
		}}
		svc := NewChatSessionService(store, chans, pub)

		var resp api.TransmitTargetResp
		req := &api.TransmitTargetReq{UserID: "u1", SessionID: "sess-1",
			Body: api.MessageBody{Type: api.MessageTypeText, Content: "x"}}
		require.NoError(t, svc.TransmitTarget(context.Background(), req, &resp))
		assert.False(t, resp.Success)
		assert.Empty(t, pub.published)
	})

	t.Run("no instance", func(t *testing.T) {
		svc := NewChatSessionService(store, &fakeChannels{byService: map[string]*fakeChannel{}}, pub)

		var resp api.TransmitTargetResp
		req := &api.TransmitTargetReq{UserID: "u1", SessionID: "sess-1",
			Body: api.MessageBody{Type: api.MessageTypeText, Content: "x"}}
		require.NoError(t, svc.TransmitTarget(context.Background(), req, &resp))
		assert.False(t, resp.Success)
		assert.Empty(t, pub.published)
	})

	t.Run("sender unknown", func(t *testing.T) {
		chans := &fakeChannels{byService: map[string]*fakeChannel{
			api.ServiceUser: userChannel(nil),
		}}
		svc := NewChatSessionService(store, chans, pub)

		var resp api.TransmitTargetResp
		req := &api.TransmitTargetReq{UserID: "ghost", SessionID: "sess-1",
			Body: api.MessageBody{Type: api.MessageTypeText, Content: "x"}}
		require.NoError(t, svc.TransmitTarget(context.Background(), req, &resp))
		assert.False(t, resp.Success)
		assert.Empty(t, pub.published)
	})
}

func TestTransmitTargetUnknownSession(t *testing.T) {
	svc, _, pub := newRouterFixture(t)

	var resp api.TransmitTargetResp
	req := &api.TransmitTargetReq{UserID: "u1", SessionID: "missing",
		Body: api.MessageBody{Type: api.MessageTypeText, Content: "x"}}
	require.NoError(t, svc.TransmitTarget(context.Background(), req, &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, pub.published)
}

func TestTransmitTargetInvalidBodyType(t *testing.T) {
	svc, _, pub := newRouterFixture(t)

	var resp api.TransmitTargetResp
	req := &api.TransmitTargetReq{UserID: "u1", SessionID: "sess-1",
		Body: api.MessageBody{Type: "video", Content: "x"}}
	require.NoError(t, svc.TransmitTarget(context.Background(), req, &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, pub.published)
}

func TestCreateSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewChatSessionService(store, &fakeChannels{}, &fakePublisher{})

	var resp api.ChatSessionCreateResp
	req := &api.ChatSessionCreateReq{SessionName: "team", MemberIDs: []string{"u1", "u2"}}
	require.NoError(t, svc.Create(context.Background(), req, &resp))
	require.True(t, resp.Success, resp.Errmsg)
	require.NotEmpty(t, resp.SessionID)

	assert.Equal(t, []string{"u1", "u2"}, store.members[resp.SessionID])
	assert.False(t, store.sessions[resp.SessionID].Single)
}

func TestCreateSessionValidation(t *testing.T) {
	svc := NewChatSessionService(newFakeSessionStore(), &fakeChannels{}, &fakePublisher{})

	var noName api.ChatSessionCreateResp
	require.NoError(t, svc.Create(context.Background(),
		&api.ChatSessionCreateReq{MemberIDs: []string{"u1"}}, &noName))
	assert.False(t, noName.Success)

	var noMembers api.ChatSessionCreateResp
	require.NoError(t, svc.Create(context.Background(),
		&api.ChatSessionCreateReq{SessionName: "x"}, &noMembers))
	assert.False(t, noMembers.Success)
}

func TestGetMember(t *testing.T) {
	svc, _, _ := newRouterFixture(t)

	var resp api.GetChatSessionMemberResp
	require.NoError(t, svc.GetMember(context.Background(),
		&api.GetChatSessionMemberReq{SessionID: "sess-1"}, &resp))
	require.True(t, resp.Success)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, resp.MemberIDs)

	var missing api.GetChatSessionMemberResp
	require.NoError(t, svc.GetMember(context.Background(),
		&api.GetChatSessionMemberReq{SessionID: "nope"}, &missing))
	assert.False(t, missing.Success)
}

func TestGetListAttachesLastMessage(t *testing.T) {
	store := newFakeSessionStore()
	store.sessions["sess-1"] = &dao.Session{SessionID: "sess-1", SessionName: "room"}
	store.members["sess-1"] = []string{"u1", "u2"}

	last := &api.MessageInfo{MessageID: "m9", SessionID: "sess-1"}
	chans := &fakeChannels{byService: map[string]*fakeChannel{
		api.ServiceMessage: {handler: func(serviceMethod string, args, reply any) {
			if serviceMethod != api.MethodGetRecentMsg {
				return
			}
			req := args.(*api.GetRecentMsgReq)
			resp := reply.(*api.GetRecentMsgResp)
			if req.SessionID == "sess-1" {
				resp.Messages = []*api.MessageInfo{last}
			}
			resp.Ok()
		}},
	}}
	svc := NewChatSessionService(store, chans, &fakePublisher{})

	var resp api.GetChatSessionListResp
	require.NoError(t, svc.GetList(context.Background(),
		&api.GetChatSessionListReq{UserID: "u1"}, &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "room", resp.Sessions[0].SessionName)
	require.NotNil(t, resp.Sessions[0].LastMessage)
	assert.Equal(t, "m9", resp.Sessions[0].LastMessage.MessageID)
}

func TestGetListSurvivesMessageServiceOutage(t *testing.T) {
	store := newFakeSessionStore()
	store.sessions["sess-1"] = &dao.Session{SessionID: "sess-1", SessionName: "room"}
	store.members["sess-1"] = []string{"u1"}

	chans := &fakeChannels{byService: map[string]*fakeChannel{
		api.ServiceMessage: {callErr: errors.New("timeout")},
	}}
	svc := NewChatSessionService(store, chans, &fakePublisher{})

	var resp api.GetChatSessionListResp
	require.NoError(t, svc.GetList(context.Background(),
		&api.GetChatSessionListReq{UserID: "u1"}, &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Sessions, 1)
	assert.Nil(t, resp.Sessions[0].LastMessage)
}
