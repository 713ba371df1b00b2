package rpc

import "errors"

var (
	// ErrBadFrame 帧格式错误
	ErrBadFrame = errors.New("rpc: malformed frame")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("rpc: client is closed")

	// ErrConnBroken 连接已断开，等待中的调用被取消
	ErrConnBroken = errors.New("rpc: connection broken")

	// ErrInvalidMethod ServiceMethod 格式错误
	ErrInvalidMethod = errors.New("rpc: invalid service method format")

	// ErrServiceNotFound 服务未注册
	ErrServiceNotFound = errors.New("rpc: service not found")

	// ErrMethodNotFound 方法未注册
	ErrMethodNotFound = errors.New("rpc: method not found")

	// ErrShutdown 服务器正在关闭
	ErrShutdown = errors.New("rpc: server is shutting down")
)
