// Package app 提供服务进程的统一生命周期管理。
package app

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lumochat/lumo/pkg/conc"
	"github.com/lumochat/lumo/pkg/logger"
)

// ErrAlreadyRunning 应用已在运行
var ErrAlreadyRunning = errors.New("app: already running")

// Server 可启动的服务（RPC/HTTP 监听等）
type Server interface {
	// Start 启动并阻塞直到停止
	Start() error
	// Stop 触发停止
	Stop() error
}

// Closer 需要随进程退出释放的资源
type Closer interface {
	Close() error
}

// CloserFunc 函数适配为 Closer
type CloserFunc func() error

// Close 实现 Closer
func (f CloserFunc) Close() error {
	return f()
}

// App 服务进程骨架：启动全部 Server，等待退出信号，
// 逆序关闭 Closer。
type App struct {
	name        string
	stopTimeout time.Duration
	log         logger.Logger

	mu      sync.Mutex
	servers []Server
	closers []Closer

	started atomic.Bool
	closed  atomic.Bool
	quit    chan struct{}
}

// Option 应用选项
type Option func(*App)

// WithStopTimeout 设置优雅停止的等待上限
func WithStopTimeout(d time.Duration) Option {
	return func(a *App) {
		a.stopTimeout = d
	}
}

// New 创建应用
func New(name string, opts ...Option) *App {
	a := &App{
		name:        name,
		stopTimeout: 15 * time.Second,
		log:         logger.Default().Named(name),
		quit:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AppendServer 注册服务
func (a *App) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 注册退出时需要释放的资源
func (a *App) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}

// Run 启动全部服务并阻塞，收到 SIGINT/SIGTERM 后优雅退出
func (a *App) Run() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	a.log.Info("application starting", "name", a.name, "pid", os.Getpid())

	a.mu.Lock()
	servers := a.servers
	a.mu.Unlock()

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		s := srv
		conc.Go(func() {
			if err := s.Start(); err != nil {
				errCh <- err
			}
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		a.log.Error("server failed, shutting down", "error", err)
	case <-a.quit:
		a.log.Info("stop requested, shutting down")
	}

	return a.Shutdown()
}

// Stop 主动触发退出
func (a *App) Stop() {
	select {
	case <-a.quit:
	default:
		close(a.quit)
	}
}

// Shutdown 停止全部服务并逆序释放资源
func (a *App) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.mu.Lock()
	servers := a.servers
	closers := a.closers
	a.mu.Unlock()

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		s := srv
		conc.Go(func() {
			defer wg.Done()
			if err := s.Stop(); err != nil {
				a.log.Error("failed to stop server", "error", err)
			}
		})
	}

	done := make(chan struct{})
	conc.Go(func() {
		wg.Wait()
		close(done)
	})

	select {
	case <-done:
		a.log.Info("all servers stopped")
	case <-time.After(a.stopTimeout):
		a.log.Warn("shutdown timeout, forcing exit")
	}

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			a.log.Error("failed to close component", "error", err)
		}
	}

	a.log.Info("application exited", "name", a.name)
	return nil
}
