package db

import (
	"context"
	"time"
)

// Row is one decoded result row keyed by column name.
type Row map[string]any

// Executor runs SQL with positional ? markers and bound arguments.
// Each call is an independent round trip; there is no session state.
type Executor interface {
	Execute(ctx context.Context, sql string, args ...any) ([]Row, error)
}

// QueryRunner runs fully literal SQL text with no bound arguments.
type QueryRunner interface {
	RunQuery(ctx context.Context, sql string) ([]Row, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
