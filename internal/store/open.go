// Package store 将解析好的连接描述转换为 *gorm.DB。
package store

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"todoapi/internal/config"
)

// Open 根据连接描述创建连接池，进程内只调用一次。
func Open(conn *config.Connection, cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(conn)
	if err != nil {
		return nil, err
	}

	logLevel := gormLogger.Silent
	if cfg.Echo {
		logLevel = gormLogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Dialector 按数据库类型选择 GORM 方言。
func Dialector(conn *config.Connection) (gorm.Dialector, error) {
	switch conn.Kind {
	case config.KindMySQL:
		mc, err := MySQLConfig(conn)
		if err != nil {
			return nil, err
		}
		return gormmysql.Open(mc.FormatDSN()), nil
	case config.KindPostgreSQL:
		pc, err := PostgresConfig(conn.URL)
		if err != nil {
			return nil, err
		}
		return postgres.New(postgres.Config{Conn: stdlib.OpenDB(*pc)}), nil
	}
	return nil, fmt.Errorf("unsupported database kind %q", conn.Kind)
}

// MySQLConfig 将 URL 形式的连接地址转换为 go-sql-driver 配置。
//
// Options["tls"] 为 *tls.Config 时以 "todoapi-<provider>" 名称注册，
// 为字符串时直接作为 DSN 的 tls 参数。
func MySQLConfig(conn *config.Connection) (*mysql.Config, error) {
	u, err := url.Parse(conn.URL)
	if err != nil {
		return nil, fmt.Errorf("parse mysql url: %w", err)
	}

	mc := mysql.NewConfig()
	if u.User != nil {
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
	}
	mc.Net = "tcp"
	mc.Addr = u.Host
	if u.Port() == "" {
		mc.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	mc.DBName = strings.TrimPrefix(u.Path, "/")
	mc.ParseTime = true
	mc.Loc = time.Local

	params := map[string]string{}
	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		if key == "tls" {
			mc.TLSConfig = values[0]
			continue
		}
		params[key] = values[0]
	}
	if len(params) > 0 {
		mc.Params = params
	}

	switch v := conn.Options["tls"].(type) {
	case nil:
	case string:
		mc.TLSConfig = v
	case *tls.Config:
		name := "todoapi-" + conn.Provider
		if err := mysql.RegisterTLSConfig(name, v); err != nil {
			return nil, fmt.Errorf("register tls config: %w", err)
		}
		mc.TLSConfig = name
	default:
		return nil, fmt.Errorf("unsupported tls option %T", v)
	}
	return mc, nil
}

// PostgresConfig 解析 PostgreSQL 连接地址。运行期 scheme 会先还原为普通形式。
func PostgresConfig(rawURL string) (*pgx.ConnConfig, error) {
	dsn, err := config.ToolingURL(rawURL)
	if err != nil {
		return nil, err
	}
	pc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	return pc, nil
}
