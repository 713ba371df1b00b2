package main

import (
	"context"
	"time"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/file/internal/service"
	"github.com/lumochat/lumo/app/file/internal/storage"
	"github.com/lumochat/lumo/pkg/app"
	"github.com/lumochat/lumo/pkg/logger"
	"github.com/lumochat/lumo/pkg/registry"
	"github.com/lumochat/lumo/pkg/registry/etcd"
	"github.com/lumochat/lumo/pkg/rpc"
)

// Config 文件服务完整配置
type Config struct {
	Log      logger.Config    `mapstructure:"log"`
	Server   rpc.ServerConfig `mapstructure:"server"`
	Registry etcd.Config      `mapstructure:"registry"`
	Storage  storage.Config   `mapstructure:"storage"`

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
	log := logger.Default().Named("file")

	store, err := storage.NewDiskStore(&cfg.Storage)
	if err != nil {
		log.Error("failed to init storage", "error", err)
		return
	}

	server, err := rpc.NewServer(&cfg.Server)
	if err != nil {
		log.Error("failed to create rpc server", "error", err)
		return
	}
	if err := server.Register(service.NewFileService(store)); err != nil {
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
	// 注册失败直接退出，不带着不可见的实例运行
	if err := registrar.Register(context.Background(), &registry.ServiceInfo{
		ServiceName: api.ServiceFile,
		Address:     advertiseAddr,
	}); err != nil {
		log.Error("failed to register service instance", "error", err)
		return
	}

	a := app.New("file")
	a.AppendServer(server)
	a.AppendCloser(app.CloserFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return registrar.Deregister(ctx)
	}))

	if err := a.Run(); err != nil {
		log.Error("application exited with error", "error", err)
	}
}
