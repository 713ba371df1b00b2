// Package conc 提供统一的 goroutine 管理：
// 带 panic 保护的 Go 函数和基于 ants 的协程池。
package conc

import (
	"github.com/panjf2000/ants/v2"

	"github.com/lumochat/lumo/pkg/logger"
)

// Go 启动一个带 panic 保护的 goroutine
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panic recovered", "panic", r)
			}
		}()
		fn()
	}()
}

// Pool 协程池，复用 goroutine 限制并发数
type Pool struct {
	inner *ants.Pool
}

// NewPool 创建协程池，size 为最大并发数
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		size = ants.DefaultAntsPoolSize
	}

	inner, err := ants.NewPool(size, ants.WithPanicHandler(func(r interface{}) {
		logger.Error("pool task panic recovered", "panic", r)
	}))
	if err != nil {
		return nil, err
	}

	return &Pool{inner: inner}, nil
}

// Submit 提交任务到协程池
func (p *Pool) Submit(task func()) error {
	return p.inner.Submit(task)
}

// Running 当前运行中的任务数
func (p *Pool) Running() int {
	return p.inner.Running()
}

// Release 释放协程池
func (p *Pool) Release() {
	p.inner.Release()
}
