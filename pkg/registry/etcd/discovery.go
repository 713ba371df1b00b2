package etcd

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/lumochat/lumo/pkg/conc"
	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/registry"
)

// Discovery 基于 etcd 前缀监听的服务发现器。
//
// Start 分两个阶段：
//  1. 同步全量拉取 namespace 下所有实例，逐个回放 OnServicePut；
//     拉取失败直接返回错误，调用方不应带着空视图继续启动。
//  2. 从全量拉取的 revision+1 起监听前缀变化，后续事件在独立
//     goroutine 中派发，保证不丢失两阶段之间发生的变更。
type Discovery struct {
	client  *clientv3.Client
	config  *Config
	handler registry.EventHandler
	log     logger.Logger

	cancel  context.CancelFunc
	closeCh chan struct{}
}

// NewDiscovery 创建服务发现器，事件通过 handler 回调
func NewDiscovery(cfg *Config, handler registry.EventHandler) (*Discovery, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("etcd: event handler is required")
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

	return &Discovery{
		client:  client,
		config:  cfg,
		handler: handler,
		log:     logger.Default().Named("discovery.etcd"),
		closeCh: make(chan struct{}),
	}, nil
}

// Start 回放存量实例并开始监听
func (d *Discovery) Start(ctx context.Context) error {
	prefix := d.config.Namespace + "/"

	resp, err := d.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return fmt.Errorf("failed to list services under %s: %w", prefix, err)
	}

	for _, kv := range resp.Kvs {
		key := string(kv.Key)
		info, err := decodeServiceRecord(d.config.Namespace, key, kv.Value)
		if err != nil {
			d.log.Warn("skip malformed service record", "key", key, "error", err)
			continue
		}
		d.handler.OnServicePut(key, info)
	}
	d.log.Info("service snapshot loaded", "prefix", prefix, "count", len(resp.Kvs))

	watchCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	watchCh := d.client.Watch(watchCtx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithRev(resp.Header.Revision+1),
	)

	conc.Go(func() {
		d.watchLoop(watchCh)
	})
	return nil
}

func (d *Discovery) watchLoop(watchCh clientv3.WatchChan) {
	defer close(d.closeCh)

	for watchResp := range watchCh {
		if err := watchResp.Err(); err != nil {
			d.log.Error("watch error", "error", err)
			continue
		}
		for _, ev := range watchResp.Events {
			key := string(ev.Kv.Key)
			switch ev.Type {
			case clientv3.EventTypePut:
				info, err := decodeServiceRecord(d.config.Namespace, key, ev.Kv.Value)
				if err != nil {
					d.log.Warn("skip malformed service record", "key", key, "error", err)
					continue
				}
				d.handler.OnServicePut(key, info)
			case clientv3.EventTypeDelete:
				d.handler.OnServiceDelete(key)
			}
		}
	}
}

// Close 停止监听并关闭客户端
func (d *Discovery) Close() error {
	if d.cancel != nil {
		d.cancel()
		<-d.closeCh
	}
	return d.client.Close()
}
