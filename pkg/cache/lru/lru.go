// Package lru 提供带 TTL 的进程内 LRU 缓存。
//
// 用于缓存下游服务的查询结果（如用户档案），减少热点路径上的
// 远程调用。条目到期后读取返回未命中，后台周期清理兜底。
package lru

import (
	"container/list"
	"sync"
	"time"

	"github.com/lumochat/lumo/pkg/conc"
)

// Config LRU 配置
type Config struct {
	// MaxSize 最大条目数，超出时按最久未使用淘汰
	MaxSize int `mapstructure:"max_size" json:"max_size"`
	// DefaultTTL 默认过期时间，为 0 表示不过期
	DefaultTTL time.Duration `mapstructure:"default_ttl" json:"default_ttl"`
	// CleanupInterval 后台清理间隔
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxSize:         1024,
		DefaultTTL:      time.Minute,
		CleanupInterval: 30 * time.Second,
	}
}

// withDefaults 用默认值补齐未设置的字段
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	out := *c
	if out.MaxSize <= 0 {
		out.MaxSize = def.MaxSize
	}
	if out.CleanupInterval <= 0 {
		out.CleanupInterval = def.CleanupInterval
	}
	return &out
}

// entry 缓存条目
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // 零值表示不过期
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache 带 TTL 的 LRU 缓存，并发安全
type Cache[K comparable, V any] struct {
	config *Config

	mu    sync.Mutex
	order *list.List
	items map[K]*list.Element

	stopCh    chan struct{}
	closeOnce sync.Once

	onEvict func(key K, value V)
}

// Option 缓存选项
type Option[K comparable, V any] func(*Cache[K, V])

// WithOnEvict 设置淘汰回调，在持锁状态下调用，回调内不得再操作缓存
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New 创建缓存并启动后台清理
func New[K comparable, V any](cfg *Config, opts ...Option[K, V]) *Cache[K, V] {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()

	c := &Cache[K, V]{
		config: cfg,
		order:  list.New(),
		items:  make(map[K]*list.Element),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	conc.Go(func() {
		c.cleanupLoop()
	})
	return c
}

func (c *Cache[K, V]) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for e := c.order.Back(); e != nil; {
		prev := e.Prev()
		if e.Value.(*entry[K, V]).expired(now) {
			c.removeElement(e)
		}
		e = prev
	}
}

// Get 读取值，不存在或已过期返回未命中
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*entry[K, V])
	if ent.expired(time.Now()) {
		c.removeElement(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Set 写入值，使用默认 TTL
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL 写入值并指定 TTL，ttl 为 0 表示不过期
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		return
	}

	elem := c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = elem
	for c.order.Len() > c.config.MaxSize {
		c.removeElement(c.order.Back())
	}
}

// Delete 删除条目
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Len 当前条目数
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear 清空全部条目，不触发淘汰回调
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[K]*list.Element)
}

// Close 停止后台清理
func (c *Cache[K, V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
	})
	return nil
}

// removeElement 调用方持锁
func (c *Cache[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
