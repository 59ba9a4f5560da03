package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ClientName is reported by CLIENT LIST for every connection taskpro opens.
const ClientName = "taskpro"

// Client is the shared go-redis client used by the job queue, the event bridge and the sweeper lock.
type Client struct {
	*redis.Client
	addr   string
	logger *zap.Logger
}

// Options builds the connection options. The short read and write timeouts keep
// a stalled Redis from blocking request paths that publish events.
func Options(addr, password string, db int) *redis.Options {
	return &redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ClientName:   ClientName,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewClient connects to Redis and fails fast when the server is unreachable.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	c := &Client{Client: redis.NewClient(Options(addr, password, db)), addr: addr, logger: logger}
	if err := c.Check(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	logger.Info("redis connected", zap.String("addr", addr), zap.Int("db", db))
	return c, nil
}

// Check pings the server. It backs the redis entry of the health endpoint.
func (c *Client) Check(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}
