package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LotTrace/LotTrace/internal/common/config"
	"github.com/LotTrace/LotTrace/internal/common/discovery"
	"github.com/LotTrace/LotTrace/internal/common/logger"
	"github.com/LotTrace/LotTrace/internal/common/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

type RunHTTPOptions struct {
	ShutdownTimeout time.Duration
	ReadHeaderWait  time.Duration
}

func defaultRunHTTPOptions() RunHTTPOptions {
	return RunHTTPOptions{
		ShutdownTimeout: 5 * time.Second,
		ReadHeaderWait:  5 * time.Second,
	}
}

// RunHTTPServer 统一的 HTTP 服务启动模板：
// - 组装 middleware 链（recovery / tracing / access log / rate limit / CORS）
// - 注册 /healthz
// - 注册到 Consul（HTTP check，失败不阻塞启动）
// - 优雅退出
func RunHTTPServer(cfg *config.Config, log logger.Logger, handler http.Handler, opts ...func(*RunHTTPOptions)) error {
	if cfg == nil {
		return fmt.Errorf("cfg is nil")
	}
	if log == nil {
		return fmt.Errorf("log is nil")
	}
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}

	o := defaultRunHTTPOptions()
	for _, apply := range opts {
		if apply != nil {
			apply(&o)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", handler)

	var limiter middleware.RateLimiter
	if cfg.Server.RateLimitPerSecond > 0 {
		limiter = middleware.NewTokenBucket(
			int64(cfg.Server.RateLimitPerSecond),
			int64(cfg.Server.RateLimitPerSecond),
		)
	}

	corsOrigins := cfg.Server.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	corsWrapper := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	root := Chain(mux,
		Recovery(log),               // 异常恢复，避免服务崩溃
		Tracing(cfg.Server.Name),    // 链路追踪
		AccessLog(log),              // 访问日志
		RateLimit(limiter),          // 限流
		func(h http.Handler) http.Handler { return corsWrapper.Handler(h) },
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           root,
		ReadHeaderTimeout: o.ReadHeaderWait,
	}

	// 初始化 Consul 客户端（失败不阻塞服务启动）
	consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
	if err != nil {
		log.Warnf("failed to connect to Consul: %v", err)
		consulClient = nil
	}
	if consulClient != nil {
		serviceID := fmt.Sprintf("%s-%s", cfg.Server.Name, uuid.New().String())
		registry := discovery.NewServiceRegistry(
			consulClient,
			serviceID,
			cfg.Server.Name,
			cfg.Server.Host,
			cfg.Server.Port,
			[]string{"http"},
		)
		if err := registry.Register(); err != nil {
			log.Warnf("failed to register service to Consul: %v", err)
		} else {
			log.Infof("Service registered to Consul: %s", serviceID)
			defer func() {
				if err := registry.Deregister(); err != nil {
					log.Warnf("failed to deregister service from Consul: %v", err)
				}
			}()
		}
	}

	log.Infof("%s starting on %s", cfg.Server.Name, srv.Addr)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("received signal %v, shutting down...", sig)
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http serve failed: %w", err)
		}
		return nil
	}

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("http shutdown timeout, forcing close: %v", err)
		return srv.Close()
	}
	log.Info("http server stopped gracefully")
	return nil
}

// WithShutdownTimeout 修改优雅退出等待时间。
func WithShutdownTimeout(d time.Duration) func(*RunHTTPOptions) {
	return func(o *RunHTTPOptions) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}
