package kafka

import (
	"context"
	"sync/atomic"

	"github.com/segmentio/kafka-go"
)

// Producer 单 topic 同步生产者
type Producer struct {
	client *Client
	topic  string
	writer *kafka.Writer

	stats  ProducerStats
	closed atomic.Bool
}

// newProducer 创建生产者
func newProducer(c *Client, topic string) *Producer {
	cfg := c.config.Producer

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(c.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		MaxAttempts:            cfg.MaxRetries + 1,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            parseCompression(cfg.Compression),
		AllowAutoTopicCreation: true,
	}

	if c.config.TLS != nil || c.config.SASL != nil {
		if transport, err := newTransport(c.config); err == nil {
			writer.Transport = transport
		} else {
			c.log.Error("failed to build kafka transport", "topic", topic, "error", err)
		}
	}

	return &Producer{client: c, topic: topic, writer: writer}
}

// Publish 同步发布单条消息，broker 确认后才返回
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	atomic.AddInt64(&p.stats.MessagesProduced, 1)

	kafkaMsg := kafka.Message{Key: msg.Key, Value: msg.Value}
	if len(msg.Headers) > 0 {
		headers := make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		kafkaMsg.Headers = headers
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		atomic.AddInt64(&p.stats.MessagesFailed, 1)
		return err
	}
	atomic.AddInt64(&p.stats.MessagesSucceeded, 1)
	return nil
}

// Topic 返回 topic 名称
func (p *Producer) Topic() string {
	return p.topic
}

// Stats 返回统计信息
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesProduced:  atomic.LoadInt64(&p.stats.MessagesProduced),
		MessagesSucceeded: atomic.LoadInt64(&p.stats.MessagesSucceeded),
		MessagesFailed:    atomic.LoadInt64(&p.stats.MessagesFailed),
	}
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}

// parseCompression 解析压缩算法
func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}
