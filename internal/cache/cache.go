// Package cache persists acquired snapshots and new-moon tables so a
// restart on the same day or year does not hit the network again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/litescript/ls-rise/internal/astro"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("cache: not found")

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Store is what the acquirer needs from a cache.
type Store interface {
	GetSnapshot(ctx context.Context, date, location string) (astro.PositionSnapshot, error)
	PutSnapshot(ctx context.Context, location string, snap astro.PositionSnapshot) error
	GetNewMoons(ctx context.Context, year int) (astro.NewMoonTable, error)
	PutNewMoons(ctx context.Context, table astro.NewMoonTable) error
	Close() error
}

// backend is a byte-oriented key/value store. get returns ErrNotFound for
// missing or expired keys.
type backend interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, val []byte, ttl time.Duration) error
	close() error
}

// Cache encodes records with msgpack on top of a backend.
type Cache struct {
	b   backend
	ttl time.Duration
}

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Path          string // sqlite database file
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration // 0 keeps records forever
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (*Cache, error) {
	var (
		b   backend
		err error
	)
	switch cfg.Backend {
	case BackendSQLite, "":
		b, err = openSQLite(ctx, cfg.Path)
	case BackendRedis:
		b, err = openRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case BackendMemory:
		b = newMemory()
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return &Cache{b: b, ttl: cfg.TTL}, nil
}

// NewMemory returns an in-process cache.
func NewMemory() *Cache {
	return &Cache{b: newMemory()}
}

func snapshotKey(date, location string) string {
	return "snapshot:" + date + ":" + location
}

func newMoonsKey(year int) string {
	return "newmoons:" + strconv.Itoa(year)
}

// GetSnapshot loads the snapshot stored for date at location.
func (c *Cache) GetSnapshot(ctx context.Context, date, location string) (astro.PositionSnapshot, error) {
	var snap astro.PositionSnapshot
	if err := c.load(ctx, snapshotKey(date, location), &snap); err != nil {
		return astro.PositionSnapshot{}, err
	}
	return snap, nil
}

// PutSnapshot stores snap under its date and location.
func (c *Cache) PutSnapshot(ctx context.Context, location string, snap astro.PositionSnapshot) error {
	return c.store(ctx, snapshotKey(snap.Date, location), snap)
}

// GetNewMoons loads the table stored for year.
func (c *Cache) GetNewMoons(ctx context.Context, year int) (astro.NewMoonTable, error) {
	var table astro.NewMoonTable
	if err := c.load(ctx, newMoonsKey(year), &table); err != nil {
		return astro.NewMoonTable{}, err
	}
	return table, nil
}

// PutNewMoons stores table under its year.
func (c *Cache) PutNewMoons(ctx context.Context, table astro.NewMoonTable) error {
	return c.store(ctx, newMoonsKey(table.Year), table)
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.b.close()
}

func (c *Cache) load(ctx context.Context, key string, v interface{}) error {
	raw, err := c.b.get(ctx, key)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *Cache) store(ctx context.Context, key string, v interface{}) error {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.b.put(ctx, key, raw, c.ttl)
}
