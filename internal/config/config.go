package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 保存应用程序配置。
//
// 数据库连接地址不在这里：它由 Resolve 根据 CLOUD_PROVIDER 等环境变量单独解析。
type Config struct {
	App      AppConfig      `json:"app"`
	Database DatabaseConfig `json:"database"`
	CORS     CORSConfig     `json:"cors"`
}

// AppConfig 应用程序基础配置。
type AppConfig struct {
	Env             string        `json:"env"`              // 运行环境: local / prod
	LogLevel        string        `json:"log_level"`        // 日志级别: debug / info / warn / error
	HTTPAddr        string        `json:"http_addr"`        // API 服务监听地址
	ShutdownTimeout time.Duration `json:"shutdown_timeout"` // 优雅退出超时（如 "10s"）
}

// DatabaseConfig 连接池与 ORM 行为配置。
type DatabaseConfig struct {
	Echo            bool          `json:"echo"`              // 是否输出 SQL 日志
	AutoMigrate     bool          `json:"auto_migrate"`      // 启动时是否自动建表
	MaxOpenConns    int           `json:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `json:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"` // 连接最长存活时间
}

// CORSConfig 跨域配置。AllowedOrigins 为空时不启用 CORS。
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// NewEnv 返回读取进程环境变量的 viper 实例。
//
// 返回值同时满足 Env 接口，可直接交给 Resolve 使用。
func NewEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	_ = v.BindEnv("app_env", "APP_ENV")
	_ = v.BindEnv("app_log_level", "APP_LOG_LEVEL")
	_ = v.BindEnv("app_http_addr", "APP_HTTP_ADDR")
	_ = v.BindEnv("app_sql_echo", "APP_SQL_ECHO")
	_ = v.BindEnv("cors_origins", "CORS_ORIGINS")
	return v
}

// Load 从 JSON 文件加载配置。
//
// 它会尝试读取 configs/config.json 文件，如果不存在则使用默认值，
// 最后由环境变量覆盖。
//
// 参数:
//
//	configPath: 配置文件路径（如果为空则使用默认路径 "configs/config.json")
//
// 返回值:
//
//	*Config: 加载完成的配置对象
//	error: 加载失败返回错误
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}
	env := NewEnv()

	// 如果配置文件不存在，使用默认配置
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		applyEnvOverrides(cfg, env)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// 文件只覆盖出现的字段，缺省的 bool 项保留默认值
	cfg := getDefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg, env)

	return cfg, nil
}

// getDefaultConfig 返回默认配置。
func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:             "local",
			LogLevel:        "info",
			HTTPAddr:        ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Echo:            false,
			AutoMigrate:     true,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		CORS: CORSConfig{
			AllowCredentials: true,
		},
	}
}

// applyDefaults 对未设置的字段应用默认值。
func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.ShutdownTimeout == 0 {
		cfg.App.ShutdownTimeout = defaults.App.ShutdownTimeout
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
	}
}

func applyEnvOverrides(cfg *Config, env *viper.Viper) {
	if v := env.GetString("app_env"); v != "" {
		cfg.App.Env = v
	}
	if v := env.GetString("app_log_level"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := env.GetString("app_http_addr"); v != "" {
		cfg.App.HTTPAddr = v
	}
	if v := os.Getenv("APP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.ShutdownTimeout = d
		}
	}

	if v := env.GetString("app_sql_echo"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.Echo = b
		}
	}
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.AutoMigrate = b
		}
	}
	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxOpenConns = i
		}
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxIdleConns = i
		}
	}

	if v := env.GetString("cors_origins"); v != "" {
		cfg.CORS.AllowedOrigins = splitOrigins(v)
	}
}

// splitOrigins 将逗号分隔的来源列表拆分并去掉空白项。
func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// UnmarshalJSON 自定义 JSON 解析，支持时间Duration字符串。
func (a *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		ShutdownTimeout string `json:"shutdown_timeout"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.ShutdownTimeout != "" {
		duration, err := time.ParseDuration(aux.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown_timeout format: %w", err)
		}
		a.ShutdownTimeout = duration
	}
	return nil
}

// UnmarshalJSON 自定义 JSON 解析，支持时间Duration字符串。
func (d *DatabaseConfig) UnmarshalJSON(data []byte) error {
	type Alias DatabaseConfig
	aux := &struct {
		ConnMaxLifetime string `json:"conn_max_lifetime"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.ConnMaxLifetime != "" {
		duration, err := time.ParseDuration(aux.ConnMaxLifetime)
		if err != nil {
			return fmt.Errorf("invalid conn_max_lifetime format: %w", err)
		}
		d.ConnMaxLifetime = duration
	}
	return nil
}
