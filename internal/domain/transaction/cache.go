package transaction

import (
	"context"

	"github.com/google/uuid"
)

// Cache is the read-side cache in front of the repository. It is best effort:
// callers fall back to the store on any error and never fail a write because
// the cache could not be updated.
type Cache interface {
	// GetView returns nil without error on a miss
	GetView(ctx context.Context, externalID uuid.UUID) (*View, error)
	// PutView stores v unless a newer version is already cached
	PutView(ctx context.Context, version int64, v View) error

	// GetPage returns nil on a miss together with the list generation the
	// caller must hand back to PutPage
	GetPage(ctx context.Context, q ListQuery) (*Page, int64, error)
	// PutPage stores p under generation; pages from older generations are never served
	PutPage(ctx context.Context, q ListQuery, generation int64, p Page) error
	// InvalidateLists retires every cached page
	InvalidateLists(ctx context.Context) error
}
