package main

import (
	"context"
	"time"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/gateway/internal/handler"
	"github.com/lumochat/lumo/pkg/app"
	"github.com/lumochat/lumo/pkg/auth"
	"github.com/lumochat/lumo/pkg/channel"
	"github.com/lumochat/lumo/pkg/database/redis"
	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/registry/etcd"
)

// Config 网关完整配置
type Config struct {
	Log      logger.Config      `mapstructure:"log"`
	HTTP     handler.HTTPConfig `mapstructure:"http"`
	Registry etcd.Config        `mapstructure:"registry"`
	Redis    redis.Config       `mapstructure:"redis"`

	// SessionTTL 登录会话有效期，须与用户服务一致，为 0 时使用默认值
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

func main() {
	var cfg Config
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}
	if err := logger.InitDefault(&cfg.Log); err != nil {
		panic(err)
	}
	log := logger.Default().Named("gateway")

	ctx := context.Background()

	rdb, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		return
	}
	sessions := auth.NewSessionManager(rdb, cfg.SessionTTL)

	// 依赖声明必须先于发现器启动，否则存量实例事件会被丢弃
	channels := channel.NewManager(nil)
	channels.Declare(api.ServiceUser, api.ServiceChatSession, api.ServiceMessage)

	discovery, err := etcd.NewDiscovery(&cfg.Registry, channels)
	if err != nil {
		log.Error("failed to create discovery", "error", err)
		return
	}
	if err := discovery.Start(ctx); err != nil {
		log.Error("failed to start discovery", "error", err)
		return
	}

	gateway, err := handler.NewGateway(channels, sessions)
	if err != nil {
		log.Error("failed to create gateway", "error", err)
		return
	}
	server, err := handler.NewHTTPServer(&cfg.HTTP, gateway)
	if err != nil {
		log.Error("failed to create http server", "error", err)
		return
	}

	a := app.New("gateway")
	a.AppendServer(server)
	a.AppendCloser(gateway)
	a.AppendCloser(discovery)
	a.AppendCloser(app.CloserFunc(func() error {
		channels.Close()
		return nil
	}))
	a.AppendCloser(rdb)

	if err := a.Run(); err != nil {
		log.Error("application exited with error", "error", err)
	}
}
