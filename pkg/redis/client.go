// Package redis wraps go-redis with the namespaced keys and small set of
// commands the services share: sessions, idempotency marks, job locks and
// rate-limit stores.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// Namespace prefixes every key this package builds.
const Namespace = "sd"

var ErrNotInitialized = errors.New("redis client not initialized")

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
const compareAndDelete = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

type Client struct {
	cmd  commands
	conn *redis.Client
}

// IdempotencyStore is the subset the HTTP and consumer idempotency guards use.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// New dials Redis and fails unless PING succeeds.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": opts.Addr, "db": opts.DB}), "redis connection established")
	}
	return &Client{cmd: conn, conn: conn}, nil
}

// options starts from the URL when present; explicit pool and timeout
// settings fill whatever the URL left unset.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	fill := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	return opts, nil
}

func (c *Client) ready() (commands, error) {
	if c == nil || c.cmd == nil {
		return nil, ErrNotInitialized
	}
	return c.cmd, nil
}

// Key joins parts under the namespace, skipping blanks.
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(Namespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return Key("idempotency", scope, id) }
func (c *Client) LockKey(parts ...string) string         { return Key(append([]string{"lock"}, parts...)...) }
func (c *Client) AccessSessionKey(accessID string) string {
	return Key("session", "access", accessID)
}
func (c *Client) UserSessionsKey(userID string) string { return Key("session", "user", userID) }

// Get returns redis.Nil when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	cmd, err := c.ready()
	if err != nil {
		return "", err
	}
	return cmd.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	cmd, err := c.ready()
	if err != nil {
		return err
	}
	return cmd.Set(ctx, key, value, ttl).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	cmd, err := c.ready()
	if err != nil {
		return false, err
	}
	return cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	cmd, err := c.ready()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return cmd.Del(ctx, keys...).Err()
}

// CompareAndDelete deletes key only if it still holds value, atomically.
func (c *Client) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	cmd, err := c.ready()
	if err != nil {
		return false, err
	}
	n, err := cmd.Eval(ctx, compareAndDelete, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SAdd adds members and, when ttl is positive, pushes the set's expiry out.
func (c *Client) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	cmd, err := c.ready()
	if err != nil || len(members) == 0 {
		return err
	}
	if err := cmd.SAdd(ctx, key, anySlice(members)...).Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	return cmd.Expire(ctx, key, ttl).Err()
}

func (c *Client) SRem(ctx context.Context, key string, members ...string) error {
	cmd, err := c.ready()
	if err != nil || len(members) == 0 {
		return err
	}
	return cmd.SRem(ctx, key, anySlice(members)...).Err()
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	cmd, err := c.ready()
	if err != nil {
		return nil, err
	}
	return cmd.SMembers(ctx, key).Result()
}

func (c *Client) Ping(ctx context.Context) error {
	cmd, err := c.ready()
	if err != nil {
		return err
	}
	return cmd.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// LimiterStore returns a ulule limiter store on this connection whose keys
// live under rate_limit:<scope>.
func (c *Client) LimiterStore(scope string) (limiter.Store, error) {
	if c == nil || c.conn == nil {
		return nil, ErrNotInitialized
	}
	return sredis.NewStoreWithOptions(c.conn, limiter.StoreOptions{
		Prefix:   Key("rate_limit", scope),
		MaxRetry: 3,
	})
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
