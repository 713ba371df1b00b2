package logger

import (
	"sync"
)

var (
	defaultLogger *BaseLogger
	defaultMu     sync.RWMutex
)

// InitDefault 初始化默认 logger
func InitDefault(cfg *Config, opts ...Option) error {
	logger, err := New(cfg, opts...)
	if err != nil {
		return err
	}

	SetDefault(logger)
	return nil
}

// SetDefault 设置默认 logger
func SetDefault(logger *BaseLogger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Default 获取默认 logger
// 未初始化时懒加载一个仅控制台输出的 logger
func Default() *BaseLogger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		logger, err := New(DefaultConfig())
		if err != nil {
			panic(err)
		}
		defaultLogger = logger
	}
	return defaultLogger
}

// --- 便捷函数 (使用默认 logger) ---

func Debug(msg string, keysAndValues ...interface{}) {
	Default().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	Default().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	Default().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	Default().Error(msg, keysAndValues...)
}

func Named(name string) Logger {
	return Default().Named(name)
}

func Sync() error {
	return Default().Sync()
}
