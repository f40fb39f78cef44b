package media

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newTestAsset(hash string) *Asset {
	asset := NewAsset()
	asset.ContentHash = hash
	asset.ObjectKey = "2024/06/x-" + hash[:8] + ".jpg"
	return asset
}

func TestMemoryRepository_Create(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	asset := newTestAsset(ContentHash([]byte("one")))
	if err := repo.Create(ctx, asset); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := newTestAsset(asset.ContentHash)
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrHashExists) {
		t.Errorf("expected ErrHashExists, got %v", err)
	}
}

func TestMemoryRepository_FindByHash(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	asset := newTestAsset(ContentHash([]byte("findable")))
	if err := repo.Create(ctx, asset); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := repo.FindByHash(ctx, asset.ContentHash)
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if found.ID != asset.ID {
		t.Errorf("FindByHash() ID = %s, want %s", found.ID, asset.ID)
	}

	if _, err := repo.FindByHash(ctx, "no-such-hash"); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	asset := newTestAsset(ContentHash([]byte("deletable")))
	if err := repo.Create(ctx, asset); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, asset.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, asset.ID); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, asset.ID); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound on second delete, got %v", err)
	}

	// The hash index entry must go with the record so the bytes can
	// be re-ingested.
	again := newTestAsset(asset.ContentHash)
	if err := repo.Create(ctx, again); err != nil {
		t.Errorf("Create() after delete error = %v", err)
	}
}

func TestMemoryRepository_ConcurrentCreateSameHash(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	hash := ContentHash([]byte("contended bytes"))

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners, losers := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, newTestAsset(hash))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrHashExists):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if losers != workers-1 {
		t.Errorf("losers = %d, want %d", losers, workers-1)
	}
}
