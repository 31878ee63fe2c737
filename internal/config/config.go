package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DebugEndpoints  bool          `mapstructure:"debug_endpoints"`
}

// BackendConfig points at the control plane that serves the task API.
type BackendConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst int           `mapstructure:"rate_burst"`
}

// DashboardConfig is the static registry the widget is built against. None of
// it is editable by the end user.
type DashboardConfig struct {
	ClusterID          string        `mapstructure:"cluster_id"`
	ResourceType       string        `mapstructure:"resource_type"`
	ResourceName       string        `mapstructure:"resource_name"`
	APIBase            string        `mapstructure:"api_base"`
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
	LogRefreshInterval time.Duration `mapstructure:"log_refresh_interval"` // reserved
	MaxLogLines        int           `mapstructure:"max_log_lines"`
	NotificationTTL    time.Duration `mapstructure:"notification_ttl"`
}

type AuthConfig struct {
	SessionToken string   `mapstructure:"session_token"` // injected by the host
	Store        string   `mapstructure:"store"`         // none, file or redis
	TokenFile    string   `mapstructure:"token_file"`
	StoreKeys    []string `mapstructure:"store_keys"`
	CookieNames  []string `mapstructure:"cookie_names"`
}

type RedisConfig struct {
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`     // json or text
	Output     string `mapstructure:"output"`     // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"`   // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

const (
	TokenStoreNone  = "none"
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

// Load reads configPath (optional) and TASKBOARD_* environment overrides on top
// of the defaults, then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable override
	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_addr", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.debug_endpoints", false)

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8081")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("backend.rate_limit", 10.0)
	v.SetDefault("backend.rate_burst", 5)

	// Dashboard registry defaults
	v.SetDefault("dashboard.cluster_id", "cluster1")
	v.SetDefault("dashboard.resource_type", "service")
	v.SetDefault("dashboard.resource_name", "tekton")
	v.SetDefault("dashboard.api_base", "/cc-ui/v1")
	v.SetDefault("dashboard.refresh_interval", "10s")
	v.SetDefault("dashboard.log_refresh_interval", "5s")
	v.SetDefault("dashboard.max_log_lines", 1000)
	v.SetDefault("dashboard.notification_ttl", "5s")

	// Auth defaults
	v.SetDefault("auth.session_token", "")
	v.SetDefault("auth.store", TokenStoreNone)
	v.SetDefault("auth.token_file", "")
	v.SetDefault("auth.store_keys", []string{"facets-auth-token", "auth-token", "token"})
	v.SetDefault("auth.cookie_names", []string{"facets-token", "auth-token"})

	// Redis defaults
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "taskboard:")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)
}
