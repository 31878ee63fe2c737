package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/zsiec/taskboard/internal/config"
)

// ErrNoToken is returned by a TokenStore that holds none of the requested keys.
var ErrNoToken = errors.New("no token stored")

// TokenStore is the persisted token tier.
type TokenStore interface {
	// Lookup returns the first non-empty value among keys, in key order,
	// together with the key it was stored under.
	Lookup(ctx context.Context, keys []string) (value, key string, err error)
}

// FileStore reads tokens from a JSON object file mapping key to value. The
// file is read on every lookup so rotated tokens are picked up.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Lookup(_ context.Context, keys []string) (string, string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", ErrNoToken
		}
		return "", "", fmt.Errorf("read token file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return "", "", fmt.Errorf("parse token file %s: %w", f.path, err)
	}

	for _, k := range keys {
		if v := strings.TrimSpace(values[k]); v != "" {
			return v, k, nil
		}
	}
	return "", "", ErrNoToken
}

// RedisStore reads tokens shared by other services from Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Lookup fetches all keys in one round trip.
func (s *RedisStore) Lookup(ctx context.Context, keys []string) (string, string, error) {
	if len(keys) == 0 {
		return "", "", ErrNoToken
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}

	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return "", "", fmt.Errorf("redis mget: %w", err)
	}

	for i, v := range vals {
		str, ok := v.(string)
		if !ok || str == "" {
			continue
		}
		return str, keys[i], nil
	}
	return "", "", ErrNoToken
}

// NewRedisClient builds the client backing RedisStore.
func NewRedisClient(cfg config.RedisConfig) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
}

// NewStore returns the token store selected by cfg.Auth.Store, or nil for
// none. The returned client is non-nil only for the redis store.
func NewStore(cfg *config.Config) (TokenStore, redis.UniversalClient, error) {
	switch cfg.Auth.Store {
	case "", config.TokenStoreNone:
		return nil, nil, nil
	case config.TokenStoreFile:
		return NewFileStore(cfg.Auth.TokenFile), nil, nil
	case config.TokenStoreRedis:
		client := NewRedisClient(cfg.Redis)
		return NewRedisStore(client, cfg.Redis.KeyPrefix), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown token store: %s", cfg.Auth.Store)
	}
}
