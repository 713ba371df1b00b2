package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumochat/lumo/pkg/logger"
)

// HTTPConfig 网关 HTTP 服务配置
type HTTPConfig struct {
	// Addr 监听地址
	Addr string `mapstructure:"addr" json:"addr"`
	// ReadTimeout 请求读取超时
	ReadTimeout time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	// WriteTimeout 响应写入超时
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	// ShutdownTimeout 优雅关闭等待上限
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	// Debug gin 调试模式
	Debug bool `mapstructure:"debug" json:"debug"`
}

// DefaultHTTPConfig 返回默认配置
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate 校验配置
func (c *HTTPConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("gateway: http addr is required")
	}
	return nil
}

// HTTPServer 网关 HTTP/WebSocket 服务，实现 app.Server
type HTTPServer struct {
	config *HTTPConfig
	server *http.Server
	log    logger.Logger
}

// NewHTTPServer 创建服务并挂载网关路由
func NewHTTPServer(cfg *HTTPConfig, gateway *Gateway) (*HTTPServer, error) {
	if cfg == nil {
		cfg = DefaultHTTPConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	gateway.Routes(engine)

	return &HTTPServer{
		config: cfg,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: logger.Default().Named("gateway.http"),
	}, nil
}

// Start 监听并阻塞直到 Stop
func (s *HTTPServer) Start() error {
	s.log.Info("gateway http server listening", "addr", s.config.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭
func (s *HTTPServer) Stop() error {
	ctx := context.Background()
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}
