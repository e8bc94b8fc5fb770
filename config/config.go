package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the application configuration grouped by concern.
// Sensitive data has no default in code and must come from the config file or the environment.
type AppConfig struct {
	App        AppSection        `mapstructure:"app"`
	Auth       AuthSection       `mapstructure:"auth"`
	Database   DatabaseSection   `mapstructure:"database"`
	Redis      RedisSection      `mapstructure:"redis"`
	Log        LogSection        `mapstructure:"log"`
	Pagination PaginationSection `mapstructure:"pagination"`
	Admin      AdminSection      `mapstructure:"admin"`
}

type AppSection struct {
	Name           string   `mapstructure:"name"`
	Version        string   `mapstructure:"version"`
	Port           string   `mapstructure:"port"`
	GinMode        string   `mapstructure:"gin_mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AuthSection struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	// AccessTokenTTLMinutes is the lifetime of issued bearer tokens.
	AccessTokenTTLMinutes int `mapstructure:"access_token_ttl_minutes"`
	BcryptCost            int `mapstructure:"bcrypt_cost"`
}

// AccessTokenTTL returns the token lifetime as a duration.
func (a AuthSection) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

type DatabaseSection struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path is the sqlite database file, used when Driver is sqlite and DSN is empty.
	Path               string `mapstructure:"path"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_minutes"`
	SlowThresholdMS    int    `mapstructure:"slow_threshold_ms"`
}

type RedisSection struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	// CacheTTLMinutes bounds how long tag and status lists stay cached.
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`
}

func (r RedisSection) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogSection struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	AccessPath string `mapstructure:"access_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type PaginationSection struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// AdminSection describes the account seeded by initdb. Password is plain text
// and is hashed before it is stored; seeding is skipped when it is empty.
type AdminSection struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// envBindings maps config keys onto the environment variable names operators already use.
var envBindings = map[string]string{
	"app.port":                           "APP_PORT",
	"app.gin_mode":                       "GIN_MODE",
	"app.allowed_origins":                "CORS_ALLOWED_ORIGINS",
	"auth.jwt_secret":                    "JWT_SECRET",
	"auth.access_token_ttl_minutes":      "ACCESS_TOKEN_EXPIRE_MINUTES",
	"auth.bcrypt_cost":                   "BCRYPT_COST",
	"database.driver":                    "DB_DRIVER",
	"database.dsn":                       "DATABASE_URI",
	"database.host":                      "DB_HOST",
	"database.port":                      "DB_PORT",
	"database.user":                      "DB_USER",
	"database.password":                  "DB_PASSWORD",
	"database.name":                      "DB_NAME",
	"database.sslmode":                   "DB_SSLMODE",
	"database.path":                      "DB_PATH",
	"redis.enabled":                      "REDIS_ENABLED",
	"redis.host":                         "REDIS_HOST",
	"redis.port":                         "REDIS_PORT",
	"redis.db":                           "REDIS_DB",
	"redis.password":                     "REDIS_PASSWORD",
	"log.level":                          "LOG_LEVEL",
	"log.path":                           "LOG_PATH",
	"log.access_path":                    "GIN_LOG_PATH",
	"log.max_size_mb":                    "LOG_MAX_SIZE_MB",
	"log.max_backups":                    "LOG_MAX_BACKUPS",
	"log.max_age_days":                   "LOG_MAX_AGE_DAYS",
	"log.compress":                       "LOG_COMPRESS",
	"pagination.default_limit":           "PAGINATION_DEFAULT_LIMIT",
	"pagination.max_limit":               "PAGINATION_MAX_LIMIT",
	"admin.username":                     "ADMIN_USERNAME",
	"admin.email":                        "ADMIN_EMAIL",
	"admin.password":                     "ADMIN_PASSWORD",
	"database.max_open_conns":            "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":            "DB_MAX_IDLE_CONNS",
	"database.slow_threshold_ms":         "DB_SLOW_THRESHOLD_MS",
	"database.conn_max_lifetime_minutes": "DB_CONN_MAX_LIFETIME_MINUTES",
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Blog API")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.gin_mode", "release")
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("auth.access_token_ttl_minutes", 30)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.name", "blog")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "blog.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime_minutes", 30)
	v.SetDefault("database.slow_threshold_ms", 2000)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.cache_ttl_minutes", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("pagination.default_limit", 10)
	v.SetDefault("pagination.max_limit", 100)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.email", "admin@example.com")
}

// Load reads configuration. Precedence: defaults -> config file -> environment.
// An empty path searches for config.{json,yaml,yml} in . and ./config; a missing file is not an error.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	applyDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// CORS_ALLOWED_ORIGINS arrives as one comma separated string.
	cfg.App.AllowedOrigins = splitAndTrim(strings.Join(cfg.App.AllowedOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values the process cannot start without.
func (c *AppConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		return errors.New("access token ttl must be positive")
	}
	if c.Pagination.DefaultLimit < 1 || c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return fmt.Errorf("invalid pagination limits %d/%d", c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	return nil
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
