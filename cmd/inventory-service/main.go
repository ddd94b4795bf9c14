package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/LotTrace/LotTrace/internal/archive"
	"github.com/LotTrace/LotTrace/internal/car"
	"github.com/LotTrace/LotTrace/internal/common/config"
	"github.com/LotTrace/LotTrace/internal/common/db"
	"github.com/LotTrace/LotTrace/internal/common/logger"
	"github.com/LotTrace/LotTrace/internal/common/server"
	"github.com/LotTrace/LotTrace/internal/common/tracing"
	"github.com/LotTrace/LotTrace/internal/httpapi"
	"github.com/LotTrace/LotTrace/internal/user"
)

var (
	configPath  = flag.String("config", "configs/inventory-service.json", "配置文件路径")
	consulHost  = flag.String("consul-host", "", "从 Consul KV 加载配置时的 Consul 地址")
	consulPort  = flag.Int("consul-port", 8500, "Consul 端口")
	consulKVKey = flag.String("consul-kv-key", "", "配置所在的 Consul KV key（设置后优先于 -config）")
)

func loadConfig() (*config.Config, error) {
	if *consulKVKey != "" {
		return config.LoadConfigFromConsulKV(*consulHost, *consulPort, *consulKVKey)
	}
	return config.LoadConfig(*configPath)
}

func main() {
	flag.Parse()

	// 加载配置（本地 JSON 或 Consul KV）
	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	_, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	// 初始化数据库
	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	if err := gormDB.AutoMigrate(&car.Car{}, &archive.Archive{}, &user.User{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// 组装各领域 service
	carRepo := car.NewRepo(gormDB)
	carSvc := car.NewService(carRepo)

	archiveRepo := archive.NewRepo(gormDB)
	archiveSvc := archive.NewService(archiveRepo, carRepo)

	userRepo := user.NewRepo(gormDB)
	userSvc := user.NewService(userRepo, cfg.Auth)

	// 首次启动时创建默认管理员
	if err := userSvc.Bootstrap(context.Background()); err != nil {
		log.Fatalf("failed to bootstrap admin user: %v", err)
	}

	api := httpapi.NewServer(carSvc, archiveSvc, userSvc, cfg.Auth, log)

	log.Infof("starting %s on %s:%d", cfg.Server.Name, cfg.Server.Host, cfg.Server.Port)
	if err := server.RunHTTPServer(cfg, log, api.Handler()); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
