package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"sync"

	"github.com/lumochat/lumo/pkg/conc"
	"github.com/lumochat/lumo/pkg/logger"
)

// Server 基于帧协议的 RPC 服务端。
//
// 每条连接一个读取 goroutine，请求交由独立 goroutine 并行处理；
// 写回响应时按连接加锁，保证帧不交错。
type Server struct {
	config *ServerConfig
	log    logger.Logger

	mu       sync.RWMutex
	services map[string]*service
	listener net.Listener
	conns    map[net.Conn]struct{}
	inflight sync.WaitGroup
	shutdown bool
}

// NewServer 创建服务端
func NewServer(config *ServerConfig) (*Server, error) {
	if config == nil {
		config = DefaultServerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		config:   config,
		log:      logger.Default().Named("rpc.server"),
		services: make(map[string]*service),
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Register 注册服务实例，方法名对外暴露为 "TypeName.MethodName"
func (s *Server) Register(rcvr any) error {
	svc, err := newService(rcvr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.services[svc.name]; dup {
		return fmt.Errorf("rpc: service already registered: %s", svc.name)
	}
	s.services[svc.name] = svc
	s.log.Info("rpc service registered", "service", svc.name, "methods", len(svc.methods))
	return nil
}

// Serve 监听并处理连接，阻塞直到 Shutdown 或监听失败
func (s *Server) Serve() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", s.config.Addr, err)
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		_ = listener.Close()
		return ErrShutdown
	}
	s.listener = listener
	s.mu.Unlock()

	s.log.Info("rpc server listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.RLock()
			closing := s.shutdown
			s.mu.RUnlock()
			if closing {
				return nil
			}
			return fmt.Errorf("rpc: accept: %w", err)
		}

		s.mu.Lock()
		if s.shutdown {
			s.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		conc.Go(func() {
			s.serveConn(conn)
		})
	}
}

// Addr 返回实际监听地址，Serve 启动前为空
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) serveConn(conn net.Conn) {
	var writeMu sync.Mutex
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	for {
		header, body, err := DecodeFrame(conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Debug("rpc connection closed", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}

		switch header.MsgType {
		case MsgTypeHeartbeat:
			// 原样回一帧心跳
			writeMu.Lock()
			_ = EncodeFrame(conn, &Header{CodecType: header.CodecType, MsgType: MsgTypeHeartbeat}, nil)
			writeMu.Unlock()
		case MsgTypeRequest:
			h := *header
			s.inflight.Add(1)
			conc.Go(func() {
				defer s.inflight.Done()
				s.handleRequest(conn, &writeMu, &h, body)
			})
		default:
			s.log.Warn("rpc unexpected frame type", "type", header.MsgType)
		}
	}
}

func (s *Server) handleRequest(conn net.Conn, writeMu *sync.Mutex, header *Header, body []byte) {
	codec := GetCodec(CodecType(header.CodecType))

	var req Message
	if err := codec.Decode(body, &req); err != nil {
		s.log.Error("rpc decode request failed", "seq", header.Seq, "error", err)
		return
	}

	resp := &Message{ServiceMethod: req.ServiceMethod}
	payload, err := s.dispatch(codec, &req)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Payload = payload
	}

	respBody, err := codec.Encode(resp)
	if err != nil {
		s.log.Error("rpc encode response failed", "method", req.ServiceMethod, "error", err)
		return
	}

	writeMu.Lock()
	err = EncodeFrame(conn, &Header{
		CodecType: header.CodecType,
		MsgType:   MsgTypeResponse,
		Seq:       header.Seq,
		BodyLen:   uint32(len(respBody)),
	}, respBody)
	writeMu.Unlock()
	if err != nil {
		s.log.Warn("rpc write response failed", "method", req.ServiceMethod, "error", err)
	}
}

func (s *Server) dispatch(codec Codec, req *Message) ([]byte, error) {
	dot := strings.LastIndex(req.ServiceMethod, ".")
	if dot < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMethod, req.ServiceMethod)
	}
	serviceName, methodName := req.ServiceMethod[:dot], req.ServiceMethod[dot+1:]

	s.mu.RLock()
	svc, ok := s.services[serviceName]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceName)
	}
	mt, ok := svc.methods[methodName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, req.ServiceMethod)
	}

	argv := reflect.New(mt.argType)
	if err := codec.Decode(req.Payload, argv.Interface()); err != nil {
		return nil, fmt.Errorf("rpc: decode args: %w", err)
	}

	replyv, err := svc.call(context.Background(), mt, argv)
	if err != nil {
		return nil, err
	}
	return codec.Encode(replyv.Interface())
}

// Start 实现 app.Server
func (s *Server) Start() error {
	return s.Serve()
}

// Stop 实现 app.Server，在配置的时限内优雅关闭
func (s *Server) Stop() error {
	ctx := context.Background()
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.Shutdown(ctx)
}

// Shutdown 停止接收新连接并等待在途请求处理完成
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.log.Info("rpc server stopped", "addr", s.config.Addr)
	return ctx.Err()
}
