// Package valkey provides a Valkey-backed cache driver. It is intended
// for deployments where several bridge daemons share one cache host.
package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/partsdesk/partsdesk-go/internal/cache"
)

// options holds the valkey driver's option map shape.
type options struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"default_ttl_seconds"`
}

func init() {
	cache.RegisterDriver("valkey", func(opts map[string]any) (cache.Cache, error) {
		o := options{Addr: "127.0.0.1:6379"}
		if opts != nil {
			if err := mapstructure.WeakDecode(opts, &o); err != nil {
				return nil, err
			}
		}
		defaultTTL := cache.TTLDefault
		if o.TTLSeconds > 0 {
			defaultTTL = time.Duration(o.TTLSeconds) * time.Second
		}
		return New(o.Addr, o.Password, o.DB, defaultTTL)
	})
}

// Cache is a Valkey-backed cache.
type Cache struct {
	client     valkeygo.Client
	defaultTTL time.Duration
}

// New connects to a Valkey server.
func New(addr, password string, db int, defaultTTL time.Duration) (*Cache, error) {
	client, err := valkeygo.NewClient(valkeygo.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
		SelectDB:    db,
		// Server-assisted client-side caching is pointless for a
		// single-writer session cache.
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey at %s: %w", addr, err)
	}
	return &Cache{client: client, defaultTTL: defaultTTL}, nil
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	cmd := c.client.B().Set().Key(key).Value(valkeygo.BinaryString(value)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("valkey del %s: %w", key, err)
	}
	return nil
}

// Close releases the connection.
func (c *Cache) Close() error {
	c.client.Close()
	return nil
}
