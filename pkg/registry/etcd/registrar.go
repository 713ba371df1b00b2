// Package etcd 提供基于 etcd 租约的服务注册与前缀监听的服务发现。
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/google/uuid"
	"github.com/lumochat/lumo/pkg/conc"
	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/registry"
)

// Registrar 基于 etcd 的服务注册器。
//
// 注册时申请租约并启动保活；租约断开后自动重新注册，
// 保证实例在 etcd 故障恢复后重新可见。
type Registrar struct {
	client *clientv3.Client
	config *Config
	log    logger.Logger

	mu          sync.Mutex
	serviceInfo *registry.ServiceInfo
	instanceKey string
	leaseID     clientv3.LeaseID
	stopCh      chan struct{}
}

// NewRegistrar 创建 etcd 服务注册器
func NewRegistrar(cfg *Config) (*Registrar, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return &Registrar{
		client: client,
		config: cfg,
		log:    logger.Default().Named("registry.etcd"),
		stopCh: make(chan struct{}),
	}, nil
}

// Register 注册服务并启动租约保活
func (r *Registrar) Register(ctx context.Context, info *registry.ServiceInfo) error {
	r.mu.Lock()
	r.serviceInfo = info
	r.instanceKey = BuildInstanceKey(r.config.Namespace, info.ServiceName, uuid.NewString())
	r.mu.Unlock()

	if err := r.register(ctx); err != nil {
		return err
	}

	conc.Go(r.keepAlive)
	return nil
}

func (r *Registrar) register(ctx context.Context) error {
	lease, err := r.client.Grant(ctx, int64(r.config.TTL.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}

	r.mu.Lock()
	info := r.serviceInfo
	key := r.instanceKey
	r.leaseID = lease.ID
	r.mu.Unlock()

	value, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal service info: %w", err)
	}

	if _, err := r.client.Put(ctx, key, string(value), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	r.log.Info("service registered",
		"service", info.ServiceName,
		"address", info.Address,
		"key", key,
		"lease_id", int64(lease.ID),
	)
	return nil
}

// keepAlive 维持租约心跳，通道关闭后重新注册
func (r *Registrar) keepAlive() {
	r.mu.Lock()
	leaseID := r.leaseID
	r.mu.Unlock()

	ch, err := r.client.KeepAlive(context.Background(), leaseID)
	if err != nil {
		r.log.Error("failed to keep lease alive", "lease_id", int64(leaseID), "error", err)
		r.reRegister()
		return
	}

	for {
		select {
		case <-r.stopCh:
			return
		case _, ok := <-ch:
			if !ok {
				select {
				case <-r.stopCh:
					return
				default:
				}
				r.log.Warn("keep alive channel closed, re-registering")
				r.reRegister()
				return
			}
		}
	}
}

// reRegister 租约失效后重新注册并重启保活
func (r *Registrar) reRegister() {
	if err := r.register(context.Background()); err != nil {
		r.log.Error("failed to re-register service", "error", err)
		return
	}
	conc.Go(r.keepAlive)
}

// Deregister 删除注册 key、撤销租约并关闭客户端
func (r *Registrar) Deregister(ctx context.Context) error {
	r.mu.Lock()
	info := r.serviceInfo
	key := r.instanceKey
	leaseID := r.leaseID
	r.mu.Unlock()

	if info == nil {
		return nil
	}

	close(r.stopCh)

	if _, err := r.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	if leaseID != 0 {
		if _, err := r.client.Revoke(ctx, leaseID); err != nil {
			r.log.Warn("failed to revoke lease", "error", err)
		}
	}

	r.log.Info("service deregistered", "service", info.ServiceName, "address", info.Address)
	return r.client.Close()
}
