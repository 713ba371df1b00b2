package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte(`{"hello":"world"}`)
	header := &Header{
		CodecType: byte(CodecTypeJSON),
		MsgType:   MsgTypeRequest,
		Seq:       42,
		BodyLen:   uint32(len(body)),
	}

	require.NoError(t, EncodeFrame(&buf, header, body))
	assert.Equal(t, HeaderSize+len(body), buf.Len())

	decoded, decodedBody, err := DecodeFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, header.Seq, decoded.Seq)
	assert.Equal(t, header.MsgType, decoded.MsgType)
	assert.Equal(t, body, decodedBody)
}

func TestFrameEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	header := &Header{MsgType: MsgTypeHeartbeat}

	require.NoError(t, EncodeFrame(&buf, header, nil))

	decoded, body, err := DecodeFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgTypeHeartbeat, decoded.MsgType)
	assert.Empty(t, body)
}

func TestDecodeFrameRejectsBadMagic(t *testing.T) {
	raw := make([]byte, HeaderSize)
	raw[0], raw[1], raw[2] = 'b', 'a', 'd'

	_, _, err := DecodeFrame(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestDecodeFrameRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, &Header{MsgType: MsgTypeRequest}, nil))
	raw := buf.Bytes()
	raw[3] = 0xff

	_, _, err := DecodeFrame(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrBadFrame)
}

type EchoArgs struct {
	Text string
}

type EchoReply struct {
	Text string
}

type EchoService struct {
	mu    sync.Mutex
	calls int
}

func (s *EchoService) Echo(ctx context.Context, args *EchoArgs, reply *EchoReply) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	reply.Text = args.Text
	return nil
}

func (s *EchoService) Fail(ctx context.Context, args *EchoArgs, reply *EchoReply) error {
	return errors.New("echo: intentional failure")
}

func startTestServer(t *testing.T, svc any) (*Server, string) {
	t.Helper()

	server, err := NewServer(&ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, server.Register(svc))

	go func() {
		_ = server.Serve()
	}()

	require.Eventually(t, func() bool {
		return server.Addr() != ""
	}, 2*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	return server, server.Addr()
}

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()

	config := DefaultClientConfig()
	config.Addr = addr
	client, err := NewClient(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientServerCall(t *testing.T) {
	_, addr := startTestServer(t, &EchoService{})
	client := newTestClient(t, addr)

	var reply EchoReply
	err := client.Call(context.Background(), "EchoService.Echo", &EchoArgs{Text: "ping"}, &reply)
	require.NoError(t, err)
	assert.Equal(t, "ping", reply.Text)
}

func TestCallRemoteError(t *testing.T) {
	_, addr := startTestServer(t, &EchoService{})
	client := newTestClient(t, addr)

	var reply EchoReply
	err := client.Call(context.Background(), "EchoService.Fail", &EchoArgs{}, &reply)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intentional failure")
}

func TestCallUnknownMethod(t *testing.T) {
	_, addr := startTestServer(t, &EchoService{})
	client := newTestClient(t, addr)

	var reply EchoReply
	err := client.Call(context.Background(), "EchoService.Nope", &EchoArgs{}, &reply)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestConcurrentCallsMultiplexed(t *testing.T) {
	svc := &EchoService{}
	_, addr := startTestServer(t, svc)
	client := newTestClient(t, addr)

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var reply EchoReply
			text := fmt.Sprintf("msg-%d", i)
			err := client.Call(context.Background(), "EchoService.Echo", &EchoArgs{Text: text}, &reply)
			if err == nil && reply.Text != text {
				err = fmt.Errorf("reply mismatch: got %q want %q", reply.Text, text)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "call %d", i)
	}
	svc.mu.Lock()
	assert.Equal(t, n, svc.calls)
	svc.mu.Unlock()
}

func TestCallContextCancel(t *testing.T) {
	config := DefaultClientConfig()
	// 无人监听的地址，连接将被拒绝
	config.Addr = "127.0.0.1:1"
	config.MaxRetries = 3
	client, err := NewClient(config)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var reply EchoReply
	err = client.Call(ctx, "EchoService.Echo", &EchoArgs{}, &reply)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientClosed(t *testing.T) {
	_, addr := startTestServer(t, &EchoService{})
	client := newTestClient(t, addr)
	require.NoError(t, client.Close())

	var reply EchoReply
	err := client.Call(context.Background(), "EchoService.Echo", &EchoArgs{}, &reply)
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestRegisterRejectsNoMethods(t *testing.T) {
	server, err := NewServer(&ServerConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, err)

	type plain struct{}
	err = server.Register(&plain{})
	assert.Error(t, err)
}
