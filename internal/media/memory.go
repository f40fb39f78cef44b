package media

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// The mutex serializes check-then-insert on the content hash, so it
// is safe for concurrent ingestions. Suitable for development and
// testing; swap for PostgresRepository in production.
type MemoryRepository struct {
	mu     sync.RWMutex
	assets map[string]*Asset
	byHash map[string]string
}

// NewMemoryRepository creates a new in-memory asset repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		assets: make(map[string]*Asset),
		byHash: make(map[string]string),
	}
}

// Create inserts a new asset, enforcing content-hash uniqueness.
func (r *MemoryRepository) Create(_ context.Context, asset *Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[asset.ContentHash]; ok {
		return ErrHashExists
	}
	clone := *asset
	r.assets[asset.ID] = &clone
	r.byHash[asset.ContentHash] = asset.ID
	return nil
}

// FindByID retrieves an asset by its ID.
// Returns a copy to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	clone := *asset
	return &clone, nil
}

// FindByHash retrieves an asset by its content hash.
func (r *MemoryRepository) FindByHash(_ context.Context, hash string) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHash[hash]
	if !ok {
		return nil, ErrAssetNotFound
	}
	clone := *r.assets[id]
	return &clone, nil
}

// List returns all assets, newest first.
func (r *MemoryRepository) List(_ context.Context) ([]*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Asset, 0, len(r.assets))
	for _, asset := range r.assets {
		clone := *asset
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes an asset record.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return ErrAssetNotFound
	}
	delete(r.byHash, asset.ContentHash)
	delete(r.assets, id)
	return nil
}
