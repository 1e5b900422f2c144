package metadata

import (
	"context"
)

// Repository is a small key/value store for client bookkeeping: cached
// credentials, the pending-operation snapshot, the sync watermark and the
// last published sync status.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
