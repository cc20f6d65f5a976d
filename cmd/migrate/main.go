// migrate 创建数据表；加 -reset 时先删除再重建（数据会丢失）。
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"todoapi/internal/config"
	"todoapi/internal/pkg/logger"
	"todoapi/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.json (default configs/config.json)")
	reset := flag.Bool("reset", false, "drop all tables before creating them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	appLogger := logger.NewDefault(cfg.App.LogLevel)

	if err := run(context.Background(), cfg, *reset, appLogger); err != nil {
		appLogger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, reset bool, appLogger *slog.Logger) error {
	conn, err := config.ResolveTooling(config.NewEnv())
	if err != nil {
		return err
	}

	db, err := store.Open(conn, cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if reset {
		appLogger.Warn("dropping and recreating tables", slog.String("kind", string(conn.Kind)))
		if err := store.Reset(ctx, db); err != nil {
			return err
		}
	} else if err := store.Migrate(db); err != nil {
		return err
	}

	appLogger.Info("migration finished", slog.Bool("reset", reset))
	return nil
}
