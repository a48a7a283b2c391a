package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
	cartTTL       time.Duration
}

// NewClient connects to Redis and verifies the connection
func NewClient(addr, password string, db int, cartTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb, cartTTL), nil
}

// NewFromRedis wraps an existing connection
func NewFromRedis(rdb *redis.Client, cartTTL time.Duration) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		cartTTL:       cartTTL,
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Lock is a held lock; Release only deletes the key while this holder still owns it
type Lock struct {
	client *Client
	key    string
	token  string
}

// AcquireLock takes lockKey for ttl. It returns nil when the lock is already held.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (*Lock, error) {
	key := fmt.Sprintf("lock:%s", lockKey)
	token := uuid.New().String()

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockKey, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{client: c, key: key, token: token}, nil
}

// Release releases the lock if still owned
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.client.releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// CartPersistence returns the persistence port for one cart session
func (c *Client) CartPersistence(sessionID string) *CartPersistence {
	return &CartPersistence{
		rdb: c.rdb,
		key: fmt.Sprintf("cart:%s", sessionID),
		ttl: c.cartTTL,
	}
}

// CartPersistence stores a serialized cart under cart:{session}; every save refreshes the TTL
type CartPersistence struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func (p *CartPersistence) Load(ctx context.Context) ([]byte, error) {
	data, err := p.rdb.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", p.key, err)
	}
	return data, nil
}

func (p *CartPersistence) Save(ctx context.Context, data []byte) error {
	if err := p.rdb.Set(ctx, p.key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", p.key, err)
	}
	return nil
}

// TryLock acquires lockKey and returns a release func. ok is false when another holder has it.
func (c *Client) TryLock(ctx context.Context, lockKey string, ttl time.Duration) (func(context.Context) error, bool, error) {
	lock, err := c.AcquireLock(ctx, lockKey, ttl)
	if err != nil || lock == nil {
		return nil, false, err
	}
	return lock.Release, true, nil
}
