// Package db defines the low-level storage facade the repositories consume.
package db

import (
	"context"
	"time"
)

// MaxPipelineBatch caps how many writes a single pipelined multi-operation
// may carry. Callers split larger batches.
const MaxPipelineBatch = 100

// Store is the main database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces; the facade exists for wiring.
type Store interface {
	Pinger
	JSONStore
	KVStore
	SortedSetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONSetItem holds a single key+data pair for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Data []byte
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key string, data []byte) error
	JSONSetMulti(ctx context.Context, items []JSONSetItem) error
	JSONGet(ctx context.Context, key string) ([]byte, error)
	// JSONGetMulti returns one entry per key; missing keys yield nil entries.
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ZAddItem holds a single member+score pair for sorted-set writes.
type ZAddItem struct {
	Member string
	Score  float64
}

// SortedSetStore provides sorted-set operations backing the recency and
// ordinal indexes.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, items []ZAddItem) error
	// ZRevRange returns members ordered by score descending, [start, stop]
	// inclusive, -1 meaning the last element.
	ZRevRange(ctx context.Context, key string, start, stop int) ([]string, error)
	// ZRange returns members ordered by score ascending.
	ZRange(ctx context.Context, key string, start, stop int) ([]string, error)
	ZRem(ctx context.Context, key string, members ...string) error
}
