package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("snapshot not found")

// Key names one snapshot slot of a viewer.
type Key string

const (
	KeyBattle Key = "currentBattle"
	KeyVotes  Key = "currentVotes"
	KeyHandle Key = "twitterUsername"
)

// Store is a per-viewer key-value store. Values are JSON documents.
type Store interface {
	Get(ctx context.Context, viewer string, key Key) ([]byte, error)
	Set(ctx context.Context, viewer string, key Key, value []byte) error
	Delete(ctx context.Context, viewer string, keys ...Key) error
	Close() error
}

const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver      string
	Path        string        // file driver
	RedisURL    string        // redis driver
	TTL         time.Duration // redis driver, 0 keeps snapshots forever
	DatabaseURL string        // postgres driver
}

// Open builds the store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverFile:
		return NewFileStore(opts.Path)
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisURL, opts.TTL)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
