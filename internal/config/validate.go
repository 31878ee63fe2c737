package config

import (
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}

	if err := c.Dashboard.Validate(); err != nil {
		return fmt.Errorf("dashboard config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	// Redis is only dialed when it backs the token store.
	if c.Auth.Store == TokenStoreRedis {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis config: %w", err)
		}
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if c.Metrics.Enabled && c.Metrics.Port == c.Server.Port {
		return fmt.Errorf("metrics port %d collides with server port", c.Metrics.Port)
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", s.Port)
	}

	if s.ReadTimeout < 0 || s.WriteTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	return nil
}

func (b *BackendConfig) Validate() error {
	if b.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url must include a host")
	}

	if b.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if b.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}

	if b.RateLimit > 0 && b.RateBurst <= 0 {
		return fmt.Errorf("rate_burst must be positive when rate_limit is set")
	}

	return nil
}

func (d *DashboardConfig) Validate() error {
	if d.ClusterID == "" {
		return fmt.Errorf("cluster_id is required")
	}

	if d.ResourceType == "" || d.ResourceName == "" {
		return fmt.Errorf("resource_type and resource_name are required")
	}

	if !strings.HasPrefix(d.APIBase, "/") {
		return fmt.Errorf("api_base must start with '/': %q", d.APIBase)
	}

	if d.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}

	if d.LogRefreshInterval <= 0 {
		return fmt.Errorf("log_refresh_interval must be positive")
	}

	if d.MaxLogLines <= 0 {
		return fmt.Errorf("max_log_lines must be positive")
	}

	if d.NotificationTTL <= 0 {
		return fmt.Errorf("notification_ttl must be positive")
	}

	return nil
}

func (a *AuthConfig) Validate() error {
	switch a.Store {
	case "", TokenStoreNone, TokenStoreRedis:
	case TokenStoreFile:
		if a.TokenFile == "" {
			return fmt.Errorf("token_file is required for the file token store")
		}
	default:
		return fmt.Errorf("unknown token store: %s", a.Store)
	}

	if a.Store == TokenStoreRedis && len(a.StoreKeys) == 0 {
		return fmt.Errorf("store_keys cannot be empty for the redis token store")
	}

	return nil
}

func (r *RedisConfig) Validate() error {
	if len(r.Addresses) == 0 {
		return fmt.Errorf("at least one Redis address is required")
	}

	if r.DB < 0 {
		return fmt.Errorf("invalid Redis database number: %d", r.DB)
	}

	if r.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}

	if r.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive")
	}

	if r.MinIdleConns < 0 {
		return fmt.Errorf("min_idle_conns cannot be negative")
	}

	if r.MinIdleConns > r.PoolSize {
		return fmt.Errorf("min_idle_conns cannot be greater than pool_size")
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"panic": true,
		"fatal": true,
		"error": true,
		"warn":  true,
		"info":  true,
		"debug": true,
		"trace": true,
	}

	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("log format must be 'json' or 'text'")
	}

	if l.Output != "stdout" && l.Output != "stderr" {
		if l.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive for file output")
		}
		if l.MaxBackups < 0 {
			return fmt.Errorf("max_backups cannot be negative")
		}
		if l.MaxAge < 0 {
			return fmt.Errorf("max_age cannot be negative")
		}
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", m.Port)
		}

		if m.Path == "" {
			return fmt.Errorf("metrics path cannot be empty")
		}
	}

	return nil
}
