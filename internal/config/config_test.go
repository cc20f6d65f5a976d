package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.App.Env)
	assert.Equal(t, ":8000", cfg.App.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.App.ShutdownTimeout)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Database.Echo)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileWithDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"app": {"env": "prod", "http_addr": ":9000", "shutdown_timeout": "3s"},
		"database": {"echo": true, "max_open_conns": 20, "conn_max_lifetime": "5m"},
		"cors": {"allowed_origins": ["https://a.example"]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.App.ShutdownTimeout)
	assert.True(t, cfg.Database.Echo)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, []string{"https://a.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileKeepsBoolDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database":{"max_open_conns":3},"cors":{}}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, 3, cfg.Database.MaxOpenConns)

	require.NoError(t, os.WriteFile(path, []byte(`{"database":{"auto_migrate":false},"cors":{"allow_credentials":false}}`), 0o600))

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.CORS.AllowCredentials)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"app":{"shutdown_timeout":"soon"}}`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("APP_HTTP_ADDR", ":8080")
	t.Setenv("APP_SQL_ECHO", "true")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://todo.example ,")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.True(t, cfg.Database.Echo)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, []string{"http://localhost:3000", "https://todo.example"}, cfg.CORS.AllowedOrigins)
}

func TestNewEnv_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("CLOUD_PROVIDER", "aws")
	t.Setenv("DB_TYPE", "postgresql")
	t.Setenv("POSTGRESQL_DATABASE_URL", "postgres://u:p@rds:5432/db")

	conn, err := Resolve(NewEnv())
	require.NoError(t, err)
	assert.Equal(t, "aws", conn.Provider)
	assert.Equal(t, "postgresql+pgx://u:p@rds:5432/db", conn.URL)
}
