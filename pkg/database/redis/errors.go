package redis

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("redis: invalid config")

	// ErrNil key 不存在
	ErrNil = errors.New("redis: key not found")
)
