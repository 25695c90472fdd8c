package pathcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the shared path cache.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// Redis keeps each course's paths in one hash so invalidation is a single DEL.
type Redis struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis connects to Redis and verifies the connection. It returns nil and
// no error when cfg.Addr is empty, so callers can fall back to Memory.
func NewRedis(ctx context.Context, cfg RedisConfig, log *zap.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "studyloop:paths:"
	}
	log.Info("path cache connected to redis", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	return &Redis{client: client, ttl: cfg.TTL, prefix: prefix}, nil
}

func (r *Redis) key(courseID string) string {
	return r.prefix + courseID
}

func (r *Redis) Get(ctx context.Context, courseID, key string) ([]byte, bool, error) {
	v, err := r.client.HGet(ctx, r.key(courseID), key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis hget: %w", err)
	}
	return v, true, nil
}

func (r *Redis) Put(ctx context.Context, courseID, key string, value []byte) error {
	k := r.key(courseID)
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, k, key, value)
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, courseID string) error {
	if err := r.client.Del(ctx, r.key(courseID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
