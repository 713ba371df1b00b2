// Package channel 维护到下游服务实例的长连接通道池。
//
// 每个服务名对应一个 Pool，Pool 内按轮询选取实例通道；
// Manager 订阅服务发现事件，只为显式声明过依赖的服务建池。
package channel

import (
	"context"
)

// Client 一条到具体服务实例的调用通道
type Client interface {
	// Call 同步调用远端方法
	Call(ctx context.Context, serviceMethod string, args, reply any) error
	// Addr 实例地址
	Addr() string
	// Close 关闭通道
	Close() error
}

// DialFunc 为指定地址建立调用通道
type DialFunc func(addr string) (Client, error)
