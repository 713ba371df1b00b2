// Package registry 定义服务注册与发现的抽象接口。
package registry

import "context"

// ServiceInfo 服务实例信息
type ServiceInfo struct {
	// ServiceName 服务名称（如 user、chatsession）
	ServiceName string `json:"service_name"`
	// Address 服务地址（如 192.168.1.10:9100）
	Address string `json:"address"`
	// Metadata 元数据（如 version, region 等）
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Registrar 服务注册接口
type Registrar interface {
	// Register 注册服务并维持租约
	Register(ctx context.Context, info *ServiceInfo) error
	// Deregister 取消注册并撤销租约
	Deregister(ctx context.Context) error
}

// EventHandler 服务发现事件回调。
// 回调在发现器的派发 goroutine 中串行执行，实现方需自行保证线程安全。
type EventHandler interface {
	// OnServicePut 服务实例上线或更新
	OnServicePut(key string, info *ServiceInfo)
	// OnServiceDelete 服务实例下线（租约过期或主动注销）
	OnServiceDelete(key string)
}

// Discovery 服务发现接口
type Discovery interface {
	// Start 先同步回放当前全量实例，再在后台监听后续变化。
	// 全量拉取失败时返回错误，不会进入监听阶段。
	Start(ctx context.Context) error
	// Close 停止监听并释放资源
	Close() error
}
