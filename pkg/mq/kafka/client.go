// Package kafka 封装 segmentio/kafka-go 的生产与消费。
//
// 生产者默认同步发送并等待全部副本确认，持久化成功才返回；
// 消费者组手动提交 offset，处理成功后才提交，失败消息会被重投。
package kafka

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lumochat/lumo/pkg/logger"
)

// Client Kafka 客户端，按 topic 缓存生产者，统一管理消费者组
type Client struct {
	config *Config
	log    logger.Logger

	producerMu sync.RWMutex
	producers  map[string]*Producer

	consumerMu sync.RWMutex
	consumers  map[string]*ConsumerGroup

	middlewares []Middleware

	closed atomic.Bool
}

// New 创建 Kafka 客户端
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    cfg,
		log:       logger.Default().Named("mq.kafka"),
		producers: make(map[string]*Producer),
		consumers: make(map[string]*ConsumerGroup),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 指定日志器
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithConsumerMiddleware 追加消费者中间件
func WithConsumerMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, mw...)
	}
}

// Producer 获取或创建指定 topic 的生产者
func (c *Client) Producer(topic string) *Producer {
	if c.closed.Load() {
		return nil
	}

	c.producerMu.RLock()
	p, exists := c.producers[topic]
	c.producerMu.RUnlock()
	if exists {
		return p
	}

	c.producerMu.Lock()
	defer c.producerMu.Unlock()
	if p, exists = c.producers[topic]; exists {
		return p
	}
	p = newProducer(c, topic)
	c.producers[topic] = p
	return p
}

// Publish 同步发布消息到指定 topic
func (c *Client) Publish(ctx context.Context, topic string, msg *Message) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	msg.Topic = topic
	return c.Producer(topic).Publish(ctx, msg)
}

// PublishWithKey 发布带分区键的消息
func (c *Client) PublishWithKey(ctx context.Context, topic, key string, value []byte) error {
	return c.Publish(ctx, topic, &Message{Key: []byte(key), Value: value})
}

// Subscribe 创建消费者组订阅主题
func (c *Client) Subscribe(topics []string, handler Handler, opts ...ConsumerOption) (*ConsumerGroup, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	if handler == nil {
		return nil, ErrNoHandler
	}
	if c.config.Consumer.GroupID == "" {
		return nil, ErrEmptyGroupID
	}

	cg, err := newConsumerGroup(c, topics, handler, opts...)
	if err != nil {
		return nil, err
	}

	c.consumerMu.Lock()
	c.consumers[cg.ID()] = cg
	c.consumerMu.Unlock()

	c.log.Info("consumer group created", "id", cg.ID(), "topics", topics)
	return cg, nil
}

// Close 关闭全部生产者与消费者
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}

	var firstErr error

	c.consumerMu.Lock()
	for id, cg := range c.consumers {
		if err := cg.Close(); err != nil {
			c.log.Error("failed to close consumer group", "id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.consumers = nil
	c.consumerMu.Unlock()

	c.producerMu.Lock()
	for topic, p := range c.producers {
		if err := p.Close(); err != nil {
			c.log.Error("failed to close producer", "topic", topic, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.producers = nil
	c.producerMu.Unlock()

	c.log.Info("kafka client closed")
	return firstErr
}

// IsClosed 客户端是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
