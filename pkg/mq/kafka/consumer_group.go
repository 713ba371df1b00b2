package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/lumochat/lumo/pkg/conc"
)

// ConsumerGroup 消费者组。
// 处理成功后才提交 offset，失败或崩溃时消息会被重投，
// 因此下游处理必须幂等。
type ConsumerGroup struct {
	client  *Client
	id      string
	topics  []string
	handler Handler
	reader  *kafka.Reader

	state  atomic.Int32
	stopCh chan struct{}
	wg     sync.WaitGroup
	pool   *conc.Pool

	concurrency int
	stats       ConsumerStats
}

// ConsumerOption 消费者选项
type ConsumerOption func(*ConsumerGroup)

// WithConcurrency 设置并发消费协程数
func WithConcurrency(n int) ConsumerOption {
	return func(cg *ConsumerGroup) {
		if n > 0 {
			cg.concurrency = n
		}
	}
}

// newConsumerGroup 创建消费者组
func newConsumerGroup(c *Client, topics []string, handler Handler, opts ...ConsumerOption) (*ConsumerGroup, error) {
	cfg := c.config.Consumer

	cg := &ConsumerGroup{
		client:      c,
		id:          uuid.NewString(),
		topics:      topics,
		stopCh:      make(chan struct{}),
		concurrency: cfg.Concurrency,
	}
	for _, opt := range opts {
		opt(cg)
	}
	if cg.concurrency < 1 {
		cg.concurrency = 1
	}

	wrapped := handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		wrapped = c.middlewares[i](wrapped)
	}
	cg.handler = wrapped

	readerCfg := kafka.ReaderConfig{
		Brokers:           c.config.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       topics,
		MinBytes:          cfg.MinBytes,
		MaxBytes:          cfg.MaxBytes,
		MaxWait:           cfg.MaxWait,
		StartOffset:       cfg.StartOffset,
		HeartbeatInterval: cfg.HeartbeatInterval,
		SessionTimeout:    cfg.SessionTimeout,
	}

	if c.config.TLS != nil || c.config.SASL != nil {
		dialer, err := newDialer(c.config)
		if err != nil {
			return nil, err
		}
		readerCfg.Dialer = dialer
	}

	cg.reader = kafka.NewReader(readerCfg)
	return cg, nil
}

// ID 消费者组实例 ID
func (cg *ConsumerGroup) ID() string {
	return cg.id
}

// Start 启动消费循环
func (cg *ConsumerGroup) Start(ctx context.Context) error {
	if !cg.state.CompareAndSwap(int32(ConsumerStateIdle), int32(ConsumerStateRunning)) {
		return ErrConsumerAlreadyRunning
	}

	cg.client.log.Info("consumer group starting",
		"id", cg.id, "topics", cg.topics, "concurrency", cg.concurrency)

	// 工作协程跑在容量等于并发数的协程池里
	pool, err := conc.NewPool(cg.concurrency)
	if err != nil {
		cg.state.Store(int32(ConsumerStateIdle))
		return err
	}
	cg.pool = pool

	for i := 0; i < cg.concurrency; i++ {
		cg.wg.Add(1)
		workerID := i
		if err := cg.pool.Submit(func() {
			defer cg.wg.Done()
			cg.consume(ctx, workerID)
		}); err != nil {
			cg.wg.Done()
			cg.client.log.Error("failed to submit consume worker",
				"id", cg.id, "worker_id", workerID, "error", err)
		}
	}
	return nil
}

// consume 消费循环：拉取、处理、处理成功后提交
func (cg *ConsumerGroup) consume(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-cg.stopCh:
			return
		default:
		}

		// 带超时拉取，保证停止信号能被及时观察到
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		kafkaMsg, err := cg.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-cg.stopCh:
				return
			default:
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			cg.client.log.Error("failed to fetch message",
				"id", cg.id, "worker_id", workerID, "error", err)
			continue
		}

		atomic.AddInt64(&cg.stats.MessagesConsumed, 1)

		msg := &Message{
			Topic:     kafkaMsg.Topic,
			Key:       kafkaMsg.Key,
			Value:     kafkaMsg.Value,
			Partition: kafkaMsg.Partition,
			Offset:    kafkaMsg.Offset,
			Timestamp: kafkaMsg.Time,
			Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		}
		for _, h := range kafkaMsg.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}

		if err := cg.handler(ctx, msg); err != nil {
			atomic.AddInt64(&cg.stats.MessagesFailed, 1)
			cg.client.log.Error("failed to handle message",
				"id", cg.id,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err)
			// 不提交 offset，等待重投
			continue
		}

		atomic.AddInt64(&cg.stats.MessagesSucceeded, 1)

		if err := cg.reader.CommitMessages(ctx, kafkaMsg); err != nil {
			cg.client.log.Error("failed to commit offset",
				"id", cg.id,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err)
		}
	}
}

// Stop 停止消费并等待工作协程退出
func (cg *ConsumerGroup) Stop() error {
	if !cg.state.CompareAndSwap(int32(ConsumerStateRunning), int32(ConsumerStateStopping)) {
		state := ConsumerState(cg.state.Load())
		if state == ConsumerStateStopped || state == ConsumerStateStopping {
			return nil
		}
		return ErrConsumerNotRunning
	}

	close(cg.stopCh)
	cg.wg.Wait()
	if cg.pool != nil {
		cg.pool.Release()
	}
	cg.state.Store(int32(ConsumerStateStopped))

	cg.client.log.Info("consumer group stopped", "id", cg.id)
	return nil
}

// Close 停止消费并关闭 reader
func (cg *ConsumerGroup) Close() error {
	_ = cg.Stop()
	return cg.reader.Close()
}

// State 当前状态
func (cg *ConsumerGroup) State() ConsumerState {
	return ConsumerState(cg.state.Load())
}

// Stats 返回统计信息
func (cg *ConsumerGroup) Stats() ConsumerStats {
	return ConsumerStats{
		MessagesConsumed:  atomic.LoadInt64(&cg.stats.MessagesConsumed),
		MessagesSucceeded: atomic.LoadInt64(&cg.stats.MessagesSucceeded),
		MessagesFailed:    atomic.LoadInt64(&cg.stats.MessagesFailed),
	}
}
