package main

import (
	"context"
	"time"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/user/internal/dao"
	"github.com/lumochat/lumo/app/user/internal/service"
	"github.com/lumochat/lumo/pkg/app"
	"github.com/lumochat/lumo/pkg/auth"
	"github.com/lumochat/lumo/pkg/database/postgres"
	"github.com/lumochat/lumo/pkg/database/redis"
	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/registry"
	"github.com/lumochat/lumo/pkg/registry/etcd"
	"github.com/lumochat/lumo/pkg/rpc"
)

// Config 用户服务完整配置
type Config struct {
	Log      logger.Config    `mapstructure:"log"`
	Server   rpc.ServerConfig `mapstructure:"server"`
	Registry etcd.Config      `mapstructure:"registry"`
	Postgres postgres.Config  `mapstructure:"postgres"`
	Redis    redis.Config     `mapstructure:"redis"`

	// SessionTTL 登录会话有效期，为 0 时使用默认值
	SessionTTL time.Duration `mapstructure:"session_ttl"`

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
	log := logger.Default().Named("user")

	ctx := context.Background()

	db, err := postgres.New(ctx, &cfg.Postgres)
	if err != nil {
		log.Error("failed to connect postgres", "error", err)
		return
	}

	rdb, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		return
	}

	sessions := auth.NewSessionManager(rdb, cfg.SessionTTL)
	svc := service.NewUserService(dao.NewUserDAO(db), sessions)

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
		ServiceName: api.ServiceUser,
		Address:     advertiseAddr,
	}); err != nil {
		log.Error("failed to register service instance", "error", err)
		return
	}

	a := app.New("user")
	a.AppendServer(server)
	a.AppendCloser(app.CloserFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return registrar.Deregister(ctx)
	}))
	a.AppendCloser(rdb)
	a.AppendCloser(app.CloserFunc(func() error {
		db.Close()
		return nil
	}))

	if err := a.Run(); err != nil {
		log.Error("application exited with error", "error", err)
	}
}
