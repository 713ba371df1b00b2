package main

import (
	"context"
	"time"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/chatsession/internal/dao"
	"github.com/lumochat/lumo/app/chatsession/internal/service"
	"github.com/lumochat/lumo/pkg/app"
	"github.com/lumochat/lumo/pkg/channel"
	"github.com/lumochat/lumo/pkg/database/postgres"
	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/mq/kafka"
	"github.com/lumochat/lumo/pkg/registry"
	"github.com/lumochat/lumo/pkg/registry/etcd"
	"github.com/lumochat/lumo/pkg/rpc"
)

// Config 会话服务完整配置
type Config struct {
	Log      logger.Config    `mapstructure:"log"`
	Server   rpc.ServerConfig `mapstructure:"server"`
	Registry etcd.Config      `mapstructure:"registry"`
	Postgres postgres.Config  `mapstructure:"postgres"`
	Kafka    kafka.Config     `mapstructure:"kafka"`

	// AdvertiseAddr 注册到注册中心的地址，为空时使用 server.addr
	AdvertiseAddr string `mapstructure:"advertise_addr"`
}

func main() {
	var cfg Config
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}
	if err := logger.InitDefault(&cfg.Log); err != nil {
		panic(err)
	}
	log := logger.Default().Named("chatsession")

	ctx := context.Background()

	db, err := postgres.New(ctx, &cfg.Postgres)
	if err != nil {
		log.Error("failed to connect postgres", "error", err)
		return
	}

	mq, err := kafka.New(&cfg.Kafka)
	if err != nil {
		log.Error("failed to create kafka client", "error", err)
		return
	}

	// 依赖声明必须先于发现器启动，否则存量实例事件会被丢弃
	channels := channel.NewManager(nil)
	channels.Declare(api.ServiceUser, api.ServiceMessage)

	discovery, err := etcd.NewDiscovery(&cfg.Registry, channels)
	if err != nil {
		log.Error("failed to create discovery", "error", err)
		return
	}
	if err := discovery.Start(ctx); err != nil {
		log.Error("failed to start discovery", "error", err)
		return
	}

	svc := service.NewChatSessionService(dao.NewSessionDAO(db), channels, mq)

	server, err := rpc.NewServer(&cfg.Server)
	if err != nil {
		log.Error("failed to create rpc server", "error", err)
		return
	}
	if err := server.Register(svc); err != nil {
		log.Error("failed to register service", "error", err)
		return
	}

	registrar, err := etcd.NewRegistrar(&cfg.Registry)
	if err != nil {
		log.Error("failed to create registrar", "error", err)
		return
	}

	advertiseAddr := cfg.AdvertiseAddr
	if advertiseAddr == "" {
		advertiseAddr = cfg.Server.Addr
	}
	if err := registrar.Register(ctx, &registry.ServiceInfo{
		ServiceName: api.ServiceChatSession,
		Address:     advertiseAddr,
	}); err != nil {
		log.Error("failed to register service instance", "error", err)
		return
	}

	a := app.New("chatsession")
	a.AppendServer(server)
	a.AppendCloser(app.CloserFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return registrar.Deregister(ctx)
	}))
	a.AppendCloser(discovery)
	a.AppendCloser(app.CloserFunc(func() error {
		channels.Close()
		return nil
	}))
	a.AppendCloser(mq)
	a.AppendCloser(app.CloserFunc(func() error {
		db.Close()
		return nil
	}))

	if err := a.Run(); err != nil {
		log.Error("application exited with error", "error", err)
	}
}
