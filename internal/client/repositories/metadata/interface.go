package metadata

import "context"

// Repository is a small key/value store for client-side state that is not
// entity data: persisted auth tokens, sync cursors and similar.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Clear wipes all keys. Called on logout.
	Clear(ctx context.Context) error
}
