package media

import (
	"context"
	"errors"
)

// Static errors for asset persistence.
var (
	// ErrAssetNotFound is returned when an asset cannot be found.
	ErrAssetNotFound = errors.New("media: asset not found")
	// ErrHashExists is returned by Create when another asset already
	// holds the same content hash. Callers treat this as a duplicate,
	// never as a hard failure.
	ErrHashExists = errors.New("media: content hash already exists")
)

// Repository defines the persistence port for assets. It doubles as
// the dedup index: Create must be atomic with respect to the content
// hash so two concurrent ingestions of identical bytes cannot both
// win. Implementations back this with a lock (memory) or a unique
// constraint (Postgres).
type Repository interface {
	// Create inserts a new asset. Returns ErrHashExists if an asset
	// with the same ContentHash is already stored.
	Create(ctx context.Context, asset *Asset) error

	// FindByID retrieves an asset by its unique identifier.
	// Returns ErrAssetNotFound if it does not exist.
	FindByID(ctx context.Context, id string) (*Asset, error)

	// FindByHash retrieves an asset by its content hash.
	// Returns ErrAssetNotFound if no asset holds that hash.
	FindByHash(ctx context.Context, hash string) (*Asset, error)

	// List returns all assets, newest first.
	List(ctx context.Context) ([]*Asset, error)

	// Delete removes an asset record.
	// Returns ErrAssetNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
