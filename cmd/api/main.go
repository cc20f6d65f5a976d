package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"todoapi/internal/api"
	"todoapi/internal/config"
	"todoapi/internal/pkg/logger"
	"todoapi/internal/store"
)

// main 是 API 服务的入口函数。
//
// 它负责：
// 1. 加载配置并解析数据库连接
// 2. 初始化日志与数据库连接池
// 3. 启动 HTTP 服务并在收到信号后优雅退出
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.NewDefault(cfg.App.LogLevel)

	conn, err := config.Resolve(config.NewEnv())
	if err != nil {
		appLogger.Error("resolve database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	// 连接地址含密码，只记录厂商与类型
	appLogger.Info("database resolved",
		slog.String("provider", providerName(conn.Provider)),
		slog.String("kind", string(conn.Kind)),
	)

	db, err := store.Open(conn, cfg.Database)
	if err != nil {
		appLogger.Error("open database failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			appLogger.Error("migrate database failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	srv, err := api.NewServer(cfg, appLogger, db)
	if err != nil {
		appLogger.Error("init server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		appLogger.Info("api server listening", slog.String("addr", cfg.App.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server run failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.App.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"api-server": func(ctx context.Context) error {
				appLogger.Info("shutting down api server...")
				if err := httpServer.Shutdown(ctx); err != nil {
					appLogger.Error("http shutdown failed", slog.String("error", err.Error()))
				}
				return srv.Close()
			},
		},
	)

	exitCode := <-wait
	appLogger.Info("api server exited", slog.Int("code", exitCode))
	os.Exit(exitCode)
}

func providerName(p string) string {
	if p == "" {
		return "local"
	}
	return p
}
