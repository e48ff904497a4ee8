package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ticketListKey = "tickets:list"

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// Client is a read-through cache for the public ticket list. It is never
// consulted to decide whether a transition is legal; every ticket write
// invalidates it synchronously.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}

	return &Client{rdb: rdb, ttl: cfg.TTL}, nil
}

// GetTicketListRaw returns the cached ticket list as raw JSON, avoiding
// an unmarshal/marshal round trip on the hot path.
func (c *Client) GetTicketListRaw(ctx context.Context) ([]byte, error) {
	data, err := c.rdb.Get(ctx, ticketListKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("ticket list not cached")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

func (c *Client) SetTicketList(ctx context.Context, list interface{}) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, ticketListKey, data, c.ttl).Err()
}

// InvalidateTicketList drops the cached list. Called synchronously from
// every path that mutates a ticket.
func (c *Client) InvalidateTicketList(ctx context.Context) error {
	return c.rdb.Del(ctx, ticketListKey).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
