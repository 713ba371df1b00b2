package kafka

import "errors"

var (
	// ErrNoBrokers 无 broker 地址
	ErrNoBrokers = errors.New("kafka: no brokers configured")

	// ErrEmptyGroupID 空消费者组 ID
	ErrEmptyGroupID = errors.New("kafka: empty group id")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("kafka: client is closed")

	// ErrProducerClosed 生产者已关闭
	ErrProducerClosed = errors.New("kafka: producer is closed")

	// ErrConsumerAlreadyRunning 消费者已在运行
	ErrConsumerAlreadyRunning = errors.New("kafka: consumer is already running")

	// ErrConsumerNotRunning 消费者未运行
	ErrConsumerNotRunning = errors.New("kafka: consumer is not running")

	// ErrNoHandler 无消息处理器
	ErrNoHandler = errors.New("kafka: no handler provided")

	// ErrNoTopics 无订阅主题
	ErrNoTopics = errors.New("kafka: no topics provided")
)
