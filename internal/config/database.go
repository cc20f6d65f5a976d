package config

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Env 是连接解析器读取环境变量的最小接口。*viper.Viper 满足该接口。
type Env interface {
	GetString(key string) string
}

// DBKind 数据库类型。
type DBKind string

const (
	KindPostgreSQL DBKind = "postgresql"
	KindMySQL      DBKind = "mysql"
)

// Access 表示连接地址的使用方。
type Access int

const (
	// AccessRuntime 运行期连接池（API 服务）。
	AccessRuntime Access = iota
	// AccessTooling 建表/迁移工具。
	AccessTooling
)

// 运行期驱动的 URL scheme。
const (
	SchemePostgresRuntime = "postgresql+pgx"
	SchemeMySQLRuntime    = "mysql+gomysql"
)

const defaultCharset = "utf8mb4"

// Options 是不进入 URL 的附加连接参数，目前只有 "tls"。
type Options map[string]any

// Connection 是解析完成的数据库连接描述。
type Connection struct {
	Provider string // 为空表示本地环境
	Kind     DBKind
	URL      string
	Options  Options
}

// ConfigError 表示启动期的数据库配置错误。
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

type provider struct {
	name    string
	urlVars map[DBKind]string
}

func (p provider) hint() string {
	return fmt.Sprintf("for %s set DB_TYPE=postgresql and %s, or DB_TYPE=mysql and %s",
		p.name, p.urlVars[KindPostgreSQL], p.urlVars[KindMySQL])
}

var managedURLVars = map[DBKind]string{
	KindPostgreSQL: "POSTGRESQL_DATABASE_URL",
	KindMySQL:      "MYSQL_DATABASE_URL",
}

var providers = map[string]provider{
	"heroku": {name: "Heroku", urlVars: map[DBKind]string{
		KindPostgreSQL: "DATABASE_URL",
		KindMySQL:      "JAWSDB_URL",
	}},
	"aws":   {name: "AWS", urlVars: managedURLVars},
	"gcp":   {name: "GCP", urlVars: managedURLVars},
	"azure": {name: "Azure", urlVars: managedURLVars},
}

var localVars = []string{"DB_TYPE", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD"}

// Resolve 解析 API 服务使用的连接（运行期驱动 scheme）。
func Resolve(env Env) (*Connection, error) {
	return resolve(env, AccessRuntime)
}

// ResolveTooling 解析建表工具使用的连接（普通 scheme）。
func ResolveTooling(env Env) (*Connection, error) {
	return resolve(env, AccessTooling)
}

func resolve(env Env, access Access) (*Connection, error) {
	providerKey := strings.ToLower(strings.TrimSpace(env.GetString("CLOUD_PROVIDER")))

	var (
		kind DBKind
		raw  string
		err  error
	)
	if providerKey == "" {
		kind, raw, err = localURL(env)
	} else {
		kind, raw, err = providerURL(env, providerKey)
	}
	if err != nil {
		return nil, err
	}

	normalized, err := NormalizeURL(raw)
	if err != nil {
		return nil, err
	}
	if access == AccessTooling {
		if normalized, err = ToolingURL(normalized); err != nil {
			return nil, err
		}
	}

	conn := &Connection{Provider: providerKey, Kind: kind, URL: normalized, Options: Options{}}
	if providerKey == "azure" {
		conn.URL, conn.Options, err = ApplyTransportSecurity(normalized, kind, access)
		if err != nil {
			return nil, err
		}
	}
	return conn, nil
}

func parseKind(raw string) (DBKind, bool) {
	switch DBKind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindPostgreSQL, "postgres":
		return KindPostgreSQL, true
	case KindMySQL:
		return KindMySQL, true
	}
	return "", false
}

// localURL 由 DB_* 变量拼出本地连接地址。
func localURL(env Env) (DBKind, string, error) {
	var missing []string
	values := make(map[string]string, len(localVars))
	for _, key := range localVars {
		v := strings.TrimSpace(env.GetString(key))
		if v == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = v
	}
	if len(missing) > 0 {
		return "", "", configErrorf("missing database environment variables: %s", strings.Join(missing, ", "))
	}

	kind, ok := parseKind(values["DB_TYPE"])
	if !ok {
		return "", "", configErrorf("unsupported DB_TYPE %q: use postgresql or mysql", values["DB_TYPE"])
	}

	u := &url.URL{
		Scheme: string(kind),
		User:   url.UserPassword(values["DB_USER"], values["DB_PASSWORD"]),
		Host:   net.JoinHostPort(values["DB_HOST"], values["DB_PORT"]),
		Path:   "/" + values["DB_NAME"],
	}
	if kind == KindMySQL {
		u.RawQuery = "charset=" + defaultCharset
	}
	return kind, u.String(), nil
}

// providerURL 从云厂商对应的变量读取完整连接地址。
func providerURL(env Env, key string) (DBKind, string, error) {
	p, ok := providers[key]
	if !ok {
		return "", "", configErrorf("unsupported CLOUD_PROVIDER %q: use heroku, aws, gcp, azure, or leave unset for local environment", key)
	}

	rawKind := env.GetString("DB_TYPE")
	if strings.TrimSpace(rawKind) == "" {
		return "", "", configErrorf("DB_TYPE is not set: %s", p.hint())
	}
	kind, ok := parseKind(rawKind)
	if !ok {
		return "", "", configErrorf("unsupported DB_TYPE %q: %s", rawKind, p.hint())
	}

	urlVar := p.urlVars[kind]
	raw := strings.TrimSpace(env.GetString(urlVar))
	if raw == "" {
		return "", "", configErrorf("%s is not set: %s", urlVar, p.hint())
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", configErrorf("%s is not a valid database URL: %v", urlVar, err)
	}
	if got, ok := schemeKind(u.Scheme); !ok || got != kind {
		return "", "", configErrorf("%s has scheme %q, which does not match DB_TYPE=%s", urlVar, u.Scheme, kind)
	}
	return kind, raw, nil
}

// schemeKind 取 "+" 之前的部分判断数据库类型，例如 postgresql+asyncpg -> postgresql。
func schemeKind(scheme string) (DBKind, bool) {
	base, _, _ := strings.Cut(scheme, "+")
	return parseKind(base)
}

// NormalizeURL 将 scheme 改写为运行期驱动形式。
//
//	postgres://, postgresql://, postgresql+asyncpg://  -> postgresql+pgx://
//	mysql://, mysql+aiomysql://                        -> mysql+gomysql://（缺省时追加 charset=utf8mb4）
//
// 其他驱动标记一律替换；已经是运行期形式或非 PostgreSQL/MySQL 的地址原样返回。
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", configErrorf("invalid database URL: %v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == SchemePostgresRuntime || scheme == SchemeMySQLRuntime {
		return raw, nil
	}
	kind, ok := schemeKind(scheme)
	if !ok {
		return raw, nil
	}

	switch kind {
	case KindPostgreSQL:
		u.Scheme = SchemePostgresRuntime
	case KindMySQL:
		u.Scheme = SchemeMySQLRuntime
		q := u.Query()
		if q.Get("charset") == "" {
			q.Set("charset", defaultCharset)
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}

// ToolingURL 还原为普通 scheme，供迁移工具和 pgx 解析使用。
// PostgreSQL 的 ssl 参数改写为 sslmode。
func ToolingURL(runtimeURL string) (string, error) {
	u, err := url.Parse(runtimeURL)
	if err != nil {
		return "", configErrorf("invalid database URL: %v", err)
	}

	switch strings.ToLower(u.Scheme) {
	case SchemePostgresRuntime:
		u.Scheme = string(KindPostgreSQL)
		q := u.Query()
		if v := q.Get("ssl"); v != "" {
			q.Del("ssl")
			if q.Get("sslmode") == "" {
				q.Set("sslmode", v)
			}
			u.RawQuery = q.Encode()
		}
	case SchemeMySQLRuntime:
		u.Scheme = string(KindMySQL)
	default:
		return runtimeURL, nil
	}
	return u.String(), nil
}

// ApplyTransportSecurity 为 Azure 托管数据库补充强制的传输加密设置。
//
// MySQL 不校验证书与主机名（Azure 未提供 CA 文件）；
// 运行期给出 *tls.Config，工具侧给出 go-sql-driver 的 "skip-verify"。
// PostgreSQL 在 URL 中要求 SSL，已有设置时不覆盖。
func ApplyTransportSecurity(rawURL string, kind DBKind, access Access) (string, Options, error) {
	switch kind {
	case KindMySQL:
		if access == AccessTooling {
			return rawURL, Options{"tls": "skip-verify"}, nil
		}
		return rawURL, Options{"tls": &tls.Config{InsecureSkipVerify: true}}, nil
	case KindPostgreSQL:
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", nil, configErrorf("invalid database URL: %v", err)
		}
		param := "ssl"
		if access == AccessTooling {
			param = "sslmode"
		}
		q := u.Query()
		if q.Get(param) == "" {
			q.Set(param, "require")
			u.RawQuery = q.Encode()
		}
		return u.String(), Options{}, nil
	}
	return rawURL, Options{}, nil
}
