package main

import (
	"context"
	"time"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/message/internal/consumer"
	"github.com/lumochat/lumo/app/message/internal/dao"
	"github.com/lumochat/lumo/app/message/internal/service"
	"github.com/lumochat/lumo/pkg/app"
	"github.com/lumochat/lumo/pkg/channel"
	"github.com/lumochat/lumo/pkg/database/postgres"
	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/mq/kafka"
	"github.com/lumochat/lumo/pkg/registry"
	"github.com/lumochat/lumo/pkg/registry/etcd"
	"github.com/lumochat/lumo/pkg/rpc"
)

// Config 消息服务完整配置
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
	log := logger.Default().Named("message")

	ctx := context.Background()

	db, err := postgres.New(ctx, &cfg.Postgres)
	if err != nil {
		log.Error("failed to connect postgres", "error", err)
		return
	}
	messages := dao.NewMessageDAO(db)

	// 依赖声明必须先于发现器启动，否则存量实例事件会被丢弃
	channels := channel.NewManager(nil)
	channels.Declare(api.ServiceUser, api.ServiceFile)

	discovery, err := etcd.NewDiscovery(&cfg.Registry, channels)
	if err != nil {
		log.Error("failed to create discovery", "error", err)
		return
	}
	if err := discovery.Start(ctx); err != nil {
		log.Error("failed to start discovery", "error", err)
		return
	}

	mqLog := logger.Default().Named("message.mq")
	mq, err := kafka.New(&cfg.Kafka,
		kafka.WithConsumerMiddleware(kafka.RecoveryMiddleware(mqLog), kafka.LoggingMiddleware(mqLog)))
	if err != nil {
		log.Error("failed to create kafka client", "error", err)
		return
	}

	persister := consumer.NewPersister(messages, channels)
	group, err := mq.Subscribe([]string{api.TopicNewMessage}, persister.Handle)
	if err != nil {
		log.Error("failed to subscribe new message topic", "error", err)
		return
	}

	consumeCtx, stopConsume := context.WithCancel(context.Background())
	if err := group.Start(consumeCtx); err != nil {
		stopConsume()
		log.Error("failed to start consumer group", "error", err)
		return
	}

	server, err := rpc.NewServer(&cfg.Server)
	if err != nil {
		stopConsume()
		log.Error("failed to create rpc server", "error", err)
		return
	}
	if err := server.Register(service.NewMessageService(messages, channels)); err != nil {
		stopConsume()
		log.Error("failed to register service", "error", err)
		return
	}

	registrar, err := etcd.NewRegistrar(&cfg.Registry)
	if err != nil {
		stopConsume()
		log.Error("failed to create registrar", "error", err)
		return
	}

	advertiseAddr := cfg.AdvertiseAddr
	if advertiseAddr == "" {
		advertiseAddr = cfg.Server.Addr
	}
	if err := registrar.Register(ctx, &registry.ServiceInfo{
		ServiceName: api.ServiceMessage,
		Address:     advertiseAddr,
	}); err != nil {
		stopConsume()
		log.Error("failed to register service instance", "error", err)
		return
	}

	a := app.New("message")
	a.AppendServer(server)
	a.AppendCloser(app.CloserFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return registrar.Deregister(ctx)
	}))
	a.AppendCloser(app.CloserFunc(func() error {
		stopConsume()
		return mq.Close()
	}))
	a.AppendCloser(discovery)
	a.AppendCloser(app.CloserFunc(func() error {
		channels.Close()
		return nil
	}))
	a.AppendCloser(app.CloserFunc(func() error {
		db.Close()
		return nil
	}))

	if err := a.Run(); err != nil {
		log.Error("application exited with error", "error", err)
	}
}
