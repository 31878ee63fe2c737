package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackendConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  BackendConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  BackendConfig{BaseURL: "http://localhost:8081", Timeout: time.Second},
			wantErr: false,
		},
		{
			name:    "unsupported scheme",
			config:  BackendConfig{BaseURL: "ftp://localhost", Timeout: time.Second},
			wantErr: true,
			errMsg:  "must be http or https",
		},
		{
			name:    "missing host",
			config:  BackendConfig{BaseURL: "https://", Timeout: time.Second},
			wantErr: true,
			errMsg:  "must include a host",
		},
		{
			name:    "zero timeout",
			config:  BackendConfig{BaseURL: "https://cp", Timeout: 0},
			wantErr: true,
			errMsg:  "timeout must be positive",
		},
		{
			name:    "rate limit without burst",
			config:  BackendConfig{BaseURL: "https://cp", Timeout: time.Second, RateLimit: 5},
			wantErr: true,
			errMsg:  "rate_burst must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if err != nil {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDashboardConfigValidate(t *testing.T) {
	base := func() DashboardConfig {
		return DashboardConfig{
			ClusterID:          "cluster1",
			ResourceType:       "service",
			ResourceName:       "tekton",
			APIBase:            "/cc-ui/v1",
			RefreshInterval:    10 * time.Second,
			LogRefreshInterval: 5 * time.Second,
			MaxLogLines:        1000,
			NotificationTTL:    5 * time.Second,
		}
	}

	tests := []struct {
		name   string
		mutate func(d *DashboardConfig)
		errMsg string
	}{
		{"missing cluster", func(d *DashboardConfig) { d.ClusterID = "" }, "cluster_id is required"},
		{"missing resource", func(d *DashboardConfig) { d.ResourceName = "" }, "resource_type and resource_name"},
		{"relative api base", func(d *DashboardConfig) { d.APIBase = "cc-ui/v1" }, "api_base must start"},
		{"zero refresh", func(d *DashboardConfig) { d.RefreshInterval = 0 }, "refresh_interval"},
		{"zero log lines", func(d *DashboardConfig) { d.MaxLogLines = 0 }, "max_log_lines"},
		{"zero notification ttl", func(d *DashboardConfig) { d.NotificationTTL = 0 }, "notification_ttl"},
	}

	valid := base()
	assert.NoError(t, valid.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(&d)
			err := d.Validate()
			assert.Error(t, err)
			if err != nil {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestAuthConfigValidate(t *testing.T) {
	assert.NoError(t, (&AuthConfig{}).Validate())
	assert.NoError(t, (&AuthConfig{Store: TokenStoreFile, TokenFile: "/run/token"}).Validate())
	assert.Error(t, (&AuthConfig{Store: TokenStoreFile}).Validate())
	assert.Error(t, (&AuthConfig{Store: TokenStoreRedis}).Validate())
	assert.Error(t, (&AuthConfig{Store: "vault"}).Validate())
}

func TestRedisConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  RedisConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: RedisConfig{
				Addresses:    []string{"localhost:6379"},
				MaxRetries:   3,
				PoolSize:     10,
				MinIdleConns: 1,
			},
			wantErr: false,
		},
		{
			name:    "missing addresses",
			config:  RedisConfig{PoolSize: 10},
			wantErr: true,
			errMsg:  "at least one Redis address is required",
		},
		{
			name:    "negative DB",
			config:  RedisConfig{Addresses: []string{"localhost:6379"}, DB: -1, PoolSize: 10},
			wantErr: true,
			errMsg:  "invalid Redis database number",
		},
		{
			name:    "min idle conns greater than pool size",
			config:  RedisConfig{Addresses: []string{"localhost:6379"}, PoolSize: 2, MinIdleConns: 5},
			wantErr: true,
			errMsg:  "min_idle_conns cannot be greater than pool_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if err != nil {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoggingConfigValidate(t *testing.T) {
	assert.NoError(t, (&LoggingConfig{Level: "info", Format: "json", Output: "stdout"}).Validate())
	assert.Error(t, (&LoggingConfig{Level: "verbose", Format: "json", Output: "stdout"}).Validate())
	assert.Error(t, (&LoggingConfig{Level: "info", Format: "xml", Output: "stdout"}).Validate())
	assert.Error(t, (&LoggingConfig{Level: "info", Format: "json", Output: "/var/log/taskboard.log"}).Validate())
	assert.NoError(t, (&LoggingConfig{Level: "info", Format: "json", Output: "/var/log/taskboard.log", MaxSize: 10}).Validate())
}
