package ports

import (
	"context"
	"time"
)

// Cache defines a key-value capability for usecases (published result snapshots,
// scheduler heartbeat). Adapters may be backed by the SQL store or Redis.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
