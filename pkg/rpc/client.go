package rpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumochat/lumo/pkg/logger"
)

// Client 面向单个服务实例的 RPC 客户端。
//
// 所有调用复用同一条 TCP 连接：每个请求分配递增 seq，
// 由唯一的接收 goroutine 按 seq 把响应派发给等待中的调用。
// 连接断开后下一次调用会自动重建连接。
type Client struct {
	config *ClientConfig
	codec  Codec
	log    logger.Logger

	mu     sync.Mutex // 保护 conn 的建立与替换
	conn   *clientConn
	seq    uint32
	closed atomic.Bool
}

// clientConn 一条活跃连接及其在途调用表
type clientConn struct {
	conn    net.Conn
	writeMu sync.Mutex // 序列化帧写入
	pending sync.Map   // seq(uint32) -> chan *Message
	done    chan struct{}
	closeMu sync.Once
}

// NewClient 创建客户端，连接按需懒建立
func NewClient(config *ClientConfig, opts ...ClientOption) (*Client, error) {
	if config == nil {
		config = DefaultClientConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		codec:  GetCodec(config.Codec),
		log:    logger.Default().Named("rpc.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientOption 客户端可选项
type ClientOption func(*Client)

// WithClientLogger 指定日志器
func WithClientLogger(log logger.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// Addr 返回目标地址
func (c *Client) Addr() string {
	return c.config.Addr
}

// Call 发起一次同步调用并等待响应。
//
// 调用不设固有超时，由 ctx 控制取消；连接层错误按配置重试，
// 服务端返回的业务错误不重试。
func (c *Client) Call(ctx context.Context, serviceMethod string, args, reply any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	payload, err := c.codec.Encode(args)
	if err != nil {
		return fmt.Errorf("rpc: encode args: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := c.roundTrip(ctx, serviceMethod, payload)
		if err != nil {
			lastErr = err
			c.log.Warn("rpc call failed",
				"method", serviceMethod,
				"addr", c.config.Addr,
				"attempt", attempt+1,
				"error", err)
			continue
		}
		if resp.Error != "" {
			// 业务错误原样上抛，不重试
			return fmt.Errorf("rpc: remote error: %s", resp.Error)
		}
		if reply == nil {
			return nil
		}
		if err := c.codec.Decode(resp.Payload, reply); err != nil {
			return fmt.Errorf("rpc: decode reply: %w", err)
		}
		return nil
	}
	return fmt.Errorf("rpc: call %s failed after %d attempts: %w",
		serviceMethod, c.config.MaxRetries, lastErr)
}

func (c *Client) roundTrip(ctx context.Context, serviceMethod string, payload []byte) (*Message, error) {
	cc, err := c.getConn()
	if err != nil {
		return nil, err
	}

	seq := atomic.AddUint32(&c.seq, 1)
	respCh := make(chan *Message, 1)
	cc.pending.Store(seq, respCh)
	defer cc.pending.Delete(seq)

	body, err := c.codec.Encode(&Message{
		ServiceMethod: serviceMethod,
		Payload:       payload,
	})
	if err != nil {
		return nil, fmt.Errorf("rpc: encode message: %w", err)
	}

	header := &Header{
		CodecType: byte(c.codec.Type()),
		MsgType:   MsgTypeRequest,
		Seq:       seq,
		BodyLen:   uint32(len(body)),
	}

	cc.writeMu.Lock()
	err = EncodeFrame(cc.conn, header, body)
	cc.writeMu.Unlock()
	if err != nil {
		c.dropConn(cc)
		return nil, fmt.Errorf("rpc: write request: %w", err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrConnBroken
		}
		return resp, nil
	case <-cc.done:
		return nil, ErrConnBroken
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// getConn 返回活跃连接，必要时重新建连
func (c *Client) getConn() (*clientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if c.conn != nil {
		select {
		case <-c.conn.done:
			c.conn = nil
		default:
			return c.conn, nil
		}
	}

	conn, err := net.DialTimeout("tcp", c.config.Addr, c.config.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", c.config.Addr, err)
	}

	cc := &clientConn{
		conn: conn,
		done: make(chan struct{}),
	}
	c.conn = cc

	go c.recvLoop(cc)
	if c.config.HeartbeatInterval > 0 {
		go c.heartbeatLoop(cc)
	}
	return cc, nil
}

// recvLoop 唯一的连接读取方，按 seq 派发响应
func (c *Client) recvLoop(cc *clientConn) {
	defer c.dropConn(cc)

	for {
		header, body, err := DecodeFrame(cc.conn)
		if err != nil {
			if !c.closed.Load() {
				c.log.Warn("rpc connection read failed", "addr", c.config.Addr, "error", err)
			}
			return
		}
		if header.MsgType == MsgTypeHeartbeat {
			continue
		}
		if header.MsgType != MsgTypeResponse {
			c.log.Warn("rpc unexpected frame type", "type", header.MsgType)
			continue
		}

		var msg Message
		if err := GetCodec(CodecType(header.CodecType)).Decode(body, &msg); err != nil {
			c.log.Error("rpc decode response failed", "seq", header.Seq, "error", err)
			continue
		}
		if ch, ok := cc.pending.Load(header.Seq); ok {
			ch.(chan *Message) <- &msg
		}
	}
}

func (c *Client) heartbeatLoop(cc *clientConn) {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cc.done:
			return
		case <-ticker.C:
			header := &Header{
				CodecType: byte(c.codec.Type()),
				MsgType:   MsgTypeHeartbeat,
			}
			cc.writeMu.Lock()
			err := EncodeFrame(cc.conn, header, nil)
			cc.writeMu.Unlock()
			if err != nil {
				c.dropConn(cc)
				return
			}
		}
	}
}

// dropConn 关闭连接并唤醒所有等待中的调用
func (c *Client) dropConn(cc *clientConn) {
	cc.closeMu.Do(func() {
		close(cc.done)
		_ = cc.conn.Close()
	})

	c.mu.Lock()
	if c.conn == cc {
		c.conn = nil
	}
	c.mu.Unlock()
}

// Close 关闭客户端，之后的调用返回 ErrClientClosed
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	cc := c.conn
	c.mu.Unlock()
	if cc != nil {
		c.dropConn(cc)
	}
	return nil
}
