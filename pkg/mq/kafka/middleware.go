package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/lumochat/lumo/pkg/logger"
)

// LoggingMiddleware 记录每条消息的处理耗时与结果
func LoggingMiddleware(log logger.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			start := time.Now()
			err := next(ctx, msg)
			duration := time.Since(start)

			if err != nil {
				log.Error("message consume failed",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"duration", duration,
					"error", err)
			} else {
				log.Debug("message consumed",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"duration", duration)
			}
			return err
		}
	}
}

// RecoveryMiddleware 捕获处理器 panic 并转为错误，避免消费协程退出
func RecoveryMiddleware(log logger.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("kafka: handler panic: %v", r)
					log.Error("message handler panicked",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"panic", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}
