package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/pkg/auth"
	"github.com/lumochat/lumo/pkg/channel"
)

type fakeConn struct {
	mu       sync.Mutex
	pushes   []*api.WSPush
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if push, ok := v.(*api.WSPush); ok {
		f.pushes = append(f.pushes, push)
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
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

// fakeSessions 内存版登录会话
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]string // session id -> user id
	online   map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]string), online: make(map[string]bool)}
}

func (f *fakeSessions) Validate(_ context.Context, sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.sessions[sessionID]
	if !ok {
		return "", auth.ErrSessionNotFound
	}
	return userID, nil
}

func (f *fakeSessions) Invalidate(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessions) SetOnline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = true
	return nil
}

func (f *fakeSessions) SetOffline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, userID)
	return nil
}

func newTestGateway(t *testing.T, chans channels, sessions sessionAuth) *Gateway {
	t.Helper()
	g, err := NewGateway(chans, sessions)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func routedMessage() *api.MessageInfo {
	return &api.MessageInfo{
		MessageID: "m1",
		SessionID: "s1",
		Timestamp: 1700000000,
		Sender:    &api.UserInfo{UserID: "u1", Nickname: "alice"},
		Body:      api.MessageBody{Type: api.MessageTypeText, Content: "hi"},
	}
}

func TestFanOutExcludesSenderAndOffline(t *testing.T) {
	g := newTestGateway(t, &fakeChannels{}, newFakeSessions())

	sender := &fakeConn{}
	online := &fakeConn{}
	g.registry.Insert("u1", "sess-1", sender)
	g.registry.Insert("u2", "sess-2", online)
	// u3 离线，不在注册表里

	g.fanOut(routedMessage(), []string{"u1", "u2", "u3"})

	require.Eventually(t, func() bool {
		return online.pushCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "m1", online.pushes[0].Message.MessageID)
	assert.Equal(t, api.WSTypeMessage, online.pushes[0].Type)

	// 发送者不收自己的推送
	assert.Equal(t, 0, sender.pushCount())
}

func TestFanOutSwallowsPushFailures(t *testing.T) {
	g := newTestGateway(t, &fakeChannels{}, newFakeSessions())

	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	healthy := &fakeConn{}
	g.registry.Insert("u2", "sess-2", broken)
	g.registry.Insert("u3", "sess-3", healthy)

	g.fanOut(routedMessage(), []string{"u2", "u3"})

	// 单目标失败不影响其他目标
	require.Eventually(t, func() bool {
		return healthy.pushCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestFanOutManyTargetsThroughPool(t *testing.T) {
	g := newTestGateway(t, &fakeChannels{}, newFakeSessions())

	// 目标数远超推送池容量，所有在线目标仍要各收到一次
	const targets = pushPoolSize + 100
	conns := make([]*fakeConn, targets)
	targetIDs := make([]string, targets)
	for i := range conns {
		conns[i] = &fakeConn{}
		targetIDs[i] = fmt.Sprintf("u%d", i+2)
		g.registry.Insert(targetIDs[i], fmt.Sprintf("sess-%d", i+2), conns[i])
	}

	g.fanOut(routedMessage(), targetIDs)

	require.Eventually(t, func() bool {
		for _, c := range conns {
			if c.pushCount() != 1 {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
}

func transmitChannel(resp *api.TransmitTargetResp) *fakeChannel {
	return &fakeChannel{handler: func(serviceMethod string, _, reply any) {
		if serviceMethod != api.MethodTransmitTarget {
			return
		}
		out := reply.(*api.TransmitTargetResp)
		*out = *resp
	}}
}

func TestNewMessage(t *testing.T) {
	sessions := newFakeSessions()
	sessions.sessions["sess-1"] = "u1"

	transmit := &api.TransmitTargetResp{
		Message:   routedMessage(),
		TargetIDs: []string{"u1", "u2"},
	}
	transmit.Ok()
	chans := &fakeChannels{byService: map[string]*fakeChannel{
		api.ServiceChatSession: transmitChannel(transmit),
	}}
	g := newTestGateway(t, chans, sessions)

	receiver := &fakeConn{}
	g.registry.Insert("u2", "sess-2", receiver)

	req := &api.NewMessageReq{
		LoginSessionID: "sess-1",
		UserID:         "u1",
		SessionID:      "s1",
		Body:           api.MessageBody{Type: api.MessageTypeText, Content: "hi"},
	}
	resp := g.newMessage(context.Background(), req)
	require.True(t, resp.Success, resp.Errmsg)
	require.NotNil(t, resp.Message)
	assert.Equal(t, "m1", resp.Message.MessageID)

	require.Eventually(t, func() bool {
		return receiver.pushCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNewMessageRejectsBadSession(t *testing.T) {
	g := newTestGateway(t, &fakeChannels{}, newFakeSessions())

	resp := g.newMessage(context.Background(), &api.NewMessageReq{
		LoginSessionID: "unknown",
		UserID:         "u1",
		SessionID:      "s1",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "not logged in", resp.Errmsg)
}

func TestNewMessageRejectsForeignSession(t *testing.T) {
	sessions := newFakeSessions()
	sessions.sessions["sess-1"] = "u1"
	g := newTestGateway(t, &fakeChannels{}, sessions)

	resp := g.newMessage(context.Background(), &api.NewMessageReq{
		LoginSessionID: "sess-1",
		UserID:         "u2",
		SessionID:      "s1",
	})
	assert.False(t, resp.Success)
}

func TestNewMessageRouterFailureIsTerminal(t *testing.T) {
	sessions := newFakeSessions()
	sessions.sessions["sess-1"] = "u1"

	t.Run("service unavailable", func(t *testing.T) {
		g := newTestGateway(t, &fakeChannels{}, sessions)
		resp := g.newMessage(context.Background(), &api.NewMessageReq{
			LoginSessionID: "sess-1", UserID: "u1", SessionID: "s1",
		})
		assert.False(t, resp.Success)
	})

	t.Run("call error", func(t *testing.T) {
		chans := &fakeChannels{byService: map[string]*fakeChannel{
			api.ServiceChatSession: {callErr: errors.New("timeout")},
		}}
		g := newTestGateway(t, chans, sessions)
		resp := g.newMessage(context.Background(), &api.NewMessageReq{
			LoginSessionID: "sess-1", UserID: "u1", SessionID: "s1",
		})
		assert.False(t, resp.Success)
	})

	t.Run("business failure", func(t *testing.T) {
		failed := &api.TransmitTargetResp{}
		failed.Fail("message not accepted")
		chans := &fakeChannels{byService: map[string]*fakeChannel{
			api.ServiceChatSession: transmitChannel(failed),
		}}
		g := newTestGateway(t, chans, sessions)
		resp := g.newMessage(context.Background(), &api.NewMessageReq{
			LoginSessionID: "sess-1", UserID: "u1", SessionID: "s1",
		})
		assert.False(t, resp.Success)
		assert.Equal(t, "message not accepted", resp.Errmsg)
	})
}
