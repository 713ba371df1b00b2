package channel

import (
	"sync"

	"github.com/lumochat/lumo/pkg/logger"
)

// Pool 单个服务的实例通道池，按轮询分摊调用
type Pool struct {
	serviceName string
	dial        DialFunc
	log         logger.Logger

	mu      sync.Mutex
	clients []Client
	counter uint64
}

// NewPool 创建通道池
func NewPool(serviceName string, dial DialFunc) *Pool {
	return &Pool{
		serviceName: serviceName,
		dial:        dial,
		log:         logger.Default().Named("channel.pool"),
	}
}

// Append 为新实例建立通道并加入池中。
// 地址已存在时不重复建连；建连失败只记日志，池保持原状，
// 等待下一次发现事件重试。
func (p *Pool) Append(addr string) {
	p.mu.Lock()
	for _, c := range p.clients {
		if c.Addr() == addr {
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()

	// 建连不持锁，避免慢拨号阻塞 Select
	client, err := p.dial(addr)
	if err != nil {
		p.log.Warn("failed to dial service instance",
			"service", p.serviceName, "addr", addr, "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		if c.Addr() == addr {
			_ = client.Close()
			return
		}
	}
	p.clients = append(p.clients, client)
	p.log.Info("service instance online",
		"service", p.serviceName, "addr", addr, "pool_size", len(p.clients))
}

// Remove 摘除下线实例并关闭其通道，地址不在池中时仅告警
func (p *Pool) Remove(addr string) {
	p.mu.Lock()
	var removed Client
	for i, c := range p.clients {
		if c.Addr() == addr {
			removed = c
			p.clients = append(p.clients[:i], p.clients[i+1:]...)
			break
		}
	}
	size := len(p.clients)
	p.mu.Unlock()

	if removed == nil {
		p.log.Warn("remove unknown service instance",
			"service", p.serviceName, "addr", addr)
		return
	}
	_ = removed.Close()
	p.log.Info("service instance offline",
		"service", p.serviceName, "addr", addr, "pool_size", size)
}

// Select 轮询返回下一个实例通道，池为空时返回 nil
func (p *Pool) Select() Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.clients) == 0 {
		return nil
	}
	c := p.clients[p.counter%uint64(len(p.clients))]
	p.counter++
	return c
}

// Size 当前池中实例数
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close 关闭池内所有通道
func (p *Pool) Close() {
	p.mu.Lock()
	clients := p.clients
	p.clients = nil
	p.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
}
