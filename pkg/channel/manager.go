package channel

import (
	"sync"

	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/registry"
	"github.com/lumochat/lumo/pkg/rpc"
)

// Manager 按服务名管理通道池，实现 registry.EventHandler。
//
// 只有通过 Declare 声明过依赖的服务才会建池；未声明服务的
// 上下线事件直接忽略。Manager 必须在发现器 Start 之前完成声明，
// 否则存量实例的回放事件会被丢弃。
type Manager struct {
	dial DialFunc
	log  logger.Logger

	mu    sync.RWMutex
	pools map[string]*Pool       // 服务名 -> 池，声明即建池
	index map[string]instanceRef // 注册 key -> 实例归属，供删除事件反查
}

// instanceRef 注册 key 对应的实例归属
type instanceRef struct {
	serviceName string
	addr        string
}

// NewManager 创建通道管理器。
// dial 为空时使用默认的 rpc 客户端拨号。
func NewManager(dial DialFunc) *Manager {
	if dial == nil {
		dial = defaultDial
	}
	return &Manager{
		dial:  dial,
		log:   logger.Default().Named("channel.manager"),
		pools: make(map[string]*Pool),
		index: make(map[string]instanceRef),
	}
}

// defaultDial 基于 pkg/rpc 建立通道
func defaultDial(addr string) (Client, error) {
	cfg := rpc.DefaultClientConfig()
	cfg.Addr = addr
	return rpc.NewClient(cfg)
}

// Declare 声明依赖的下游服务，可多次调用，重复声明幂等
func (m *Manager) Declare(serviceNames ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range serviceNames {
		if _, ok := m.pools[name]; ok {
			continue
		}
		m.pools[name] = NewPool(name, m.dial)
		m.log.Info("service dependency declared", "service", name)
	}
}

// OnServicePut 服务实例上线或更新
func (m *Manager) OnServicePut(key string, info *registry.ServiceInfo) {
	m.mu.RLock()
	pool, declared := m.pools[info.ServiceName]
	m.mu.RUnlock()
	if !declared {
		m.log.Debug("ignore undeclared service", "service", info.ServiceName, "key", key)
		return
	}

	m.mu.Lock()
	m.index[key] = instanceRef{serviceName: info.ServiceName, addr: info.Address}
	m.mu.Unlock()

	pool.Append(info.Address)
}

// OnServiceDelete 服务实例下线
func (m *Manager) OnServiceDelete(key string) {
	m.mu.Lock()
	ref, ok := m.index[key]
	if ok {
		delete(m.index, key)
	}
	m.mu.Unlock()

	if !ok {
		// 未声明服务或从未成功上线的实例
		m.log.Debug("ignore delete for untracked key", "key", key)
		return
	}

	m.mu.RLock()
	pool := m.pools[ref.serviceName]
	m.mu.RUnlock()
	if pool != nil {
		pool.Remove(ref.addr)
	}
}

// Choose 轮询选取目标服务的一个实例通道。
// 服务未声明或当前无可用实例时返回 nil。
func (m *Manager) Choose(serviceName string) Client {
	m.mu.RLock()
	pool := m.pools[serviceName]
	m.mu.RUnlock()
	if pool == nil {
		m.log.Warn("choose on undeclared service", "service", serviceName)
		return nil
	}
	return pool.Select()
}

// PoolSize 目标服务当前可用实例数，未声明返回 0
func (m *Manager) PoolSize(serviceName string) int {
	m.mu.RLock()
	pool := m.pools[serviceName]
	m.mu.RUnlock()
	if pool == nil {
		return 0
	}
	return pool.Size()
}

// Close 关闭全部通道池
func (m *Manager) Close() {
	m.mu.Lock()
	pools := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.pools = make(map[string]*Pool)
	m.index = make(map[string]instanceRef)
	m.mu.Unlock()

	for _, p := range pools {
		p.Close()
	}
}
