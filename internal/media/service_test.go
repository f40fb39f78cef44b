package media

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bigfa/pluto/internal/exif"
	"github.com/bigfa/pluto/internal/storage"
)

// fakeStore records calls and can be told to fail.
type fakeStore struct {
	mu      sync.Mutex
	puts    int
	deletes int
	objects map[string][]byte
	putErr  error
	delErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

// fakeGeocoder returns a canned name or error.
type fakeGeocoder struct {
	name string
	err  error
}

func (f fakeGeocoder) Resolve(_ context.Context, _, _ float64) (string, error) {
	return f.name, f.err
}

func floatPtr(v float64) *float64 { return &v }

// canonMeta mimics a JPEG with EXIF: Canon camera and GPS present.
func canonMeta(_ []byte) (exif.Metadata, error) {
	taken := time.Date(2023, 8, 12, 9, 15, 0, 0, time.UTC)
	return exif.Metadata{
		Width:       4000,
		Height:      3000,
		CameraMake:  "Canon",
		CameraModel: "Canon EOS R6",
		Aperture:    "4",
		TakenAt:     &taken,
		Latitude:    floatPtr(-37.8),
		Longitude:   floatPtr(144.9633),
	}, nil
}

func newTestService(store storage.Store, opts ...ServiceOption) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	stores := map[storage.Provider]storage.Store{storage.ProviderLocal: store}
	base := []ServiceOption{WithExtractor(canonMeta)}
	svc := NewService(repo, stores, nil, append(base, opts...)...)
	return svc, repo
}

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles a fully populated asset", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestService(store, WithGeocoder(fakeGeocoder{name: "Melbourne, Victoria, Australia"}))

		result, err := svc.Ingest(ctx, IngestInput{
			Data:        []byte("jpeg bytes with exif"),
			Filename:    "IMG_0042.jpg",
			ContentType: "image/jpeg",
		})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.Duplicate {
			t.Fatal("first ingestion must not be a duplicate")
		}

		asset := result.Asset
		if asset.Provider != storage.ProviderLocal {
			t.Errorf("provider = %s, want local", asset.Provider)
		}
		if asset.ContentHash == "" {
			t.Error("content hash must be set")
		}
		if asset.CameraMake != "Canon" {
			t.Errorf("camera make = %q, want Canon", asset.CameraMake)
		}
		if asset.LocationName != "Melbourne, Victoria, Australia" {
			t.Errorf("location name = %q", asset.LocationName)
		}
		if asset.Width != 4000 || asset.Height != 3000 {
			t.Errorf("dimensions = %dx%d, want 4000x3000", asset.Width, asset.Height)
		}
		// Capture year/month drive the key, not upload time.
		if asset.PublicURL != "https://cdn.example.com/"+asset.ObjectKey {
			t.Errorf("public URL = %q not derived from key %q", asset.PublicURL, asset.ObjectKey)
		}
		if len(asset.ObjectKey) < len("2023/08/") || asset.ObjectKey[:8] != "2023/08/" {
			t.Errorf("object key %q should start with capture date 2023/08/", asset.ObjectKey)
		}
		if store.puts != 1 {
			t.Errorf("puts = %d, want 1", store.puts)
		}
	})

	t.Run("duplicate short-circuits before upload", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestService(store)
		data := []byte("identical photo bytes")

		first, err := svc.Ingest(ctx, IngestInput{Data: data, Filename: "a.jpg", ContentType: "image/jpeg"})
		if err != nil {
			t.Fatalf("first Ingest() error = %v", err)
		}

		second, err := svc.Ingest(ctx, IngestInput{Data: data, Filename: "renamed.jpg", ContentType: "image/jpeg"})
		if err != nil {
			t.Fatalf("second Ingest() error = %v", err)
		}
		if !second.Duplicate {
			t.Error("second ingestion must report duplicate")
		}
		if second.Asset.ID != first.Asset.ID {
			t.Errorf("duplicate must reference original asset %s, got %s", first.Asset.ID, second.Asset.ID)
		}
		if store.puts != 1 {
			t.Errorf("puts = %d, want 1 (no upload for duplicates)", store.puts)
		}
	})

	t.Run("geocode failure falls back to coordinate string", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestService(store, WithGeocoder(fakeGeocoder{err: errors.New("timeout")}))

		result, err := svc.Ingest(ctx, IngestInput{Data: []byte("gps bytes"), Filename: "b.jpg", ContentType: "image/jpeg"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.Asset.LocationName != "37.8000°S 144.9633°E" {
			t.Errorf("location name = %q, want coordinate fallback", result.Asset.LocationName)
		}
	})

	t.Run("extraction failure is not fatal", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestService(store, WithExtractor(func(_ []byte) (exif.Metadata, error) {
			return exif.Metadata{}, errors.New("corrupt metadata")
		}))

		result, err := svc.Ingest(ctx, IngestInput{Data: []byte("not an image"), Filename: "c.bin", ContentType: "application/octet-stream"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.Asset.CameraMake != "" || result.Asset.Width != 0 {
			t.Error("failed extraction must leave metadata fields empty")
		}
	})

	t.Run("upload failure aborts with nothing persisted", func(t *testing.T) {
		store := newFakeStore()
		store.putErr = errors.New("bucket unavailable")
		svc, repo := newTestService(store)

		_, err := svc.Ingest(ctx, IngestInput{Data: []byte("doomed"), Filename: "d.jpg", ContentType: "image/jpeg"})
		if err == nil {
			t.Fatal("expected upload failure to surface")
		}
		if _, findErr := repo.FindByHash(ctx, ContentHash([]byte("doomed"))); !errors.Is(findErr, ErrAssetNotFound) {
			t.Error("no record may be persisted after a failed upload")
		}
	})

	t.Run("empty upload is rejected", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore())
		if _, err := svc.Ingest(ctx, IngestInput{Filename: "e.jpg"}); !errors.Is(err, ErrEmptyUpload) {
			t.Errorf("expected ErrEmptyUpload, got %v", err)
		}
	})

	t.Run("unknown provider is rejected before hashing work", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore())
		_, err := svc.Ingest(ctx, IngestInput{Data: []byte("x"), Provider: storage.Provider("ftp")})
		if !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("expected ErrUnknownProvider, got %v", err)
		}
	})
}

func TestService_Ingest_ConcurrentSameBytes(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)
	data := []byte("raced bytes")

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*IngestResult, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Ingest(ctx, IngestInput{Data: data, Filename: "race.jpg", ContentType: "image/jpeg"})
		}(i)
	}
	wg.Wait()

	winnerID := ""
	fresh := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("Ingest() error = %v", errs[i])
		}
		if !results[i].Duplicate {
			fresh++
			winnerID = results[i].Asset.ID
		}
	}
	if fresh != 1 {
		t.Fatalf("fresh ingestions = %d, want exactly 1", fresh)
	}
	for i := 0; i < workers; i++ {
		if results[i].Asset.ID != winnerID {
			t.Errorf("all results must reference the winning asset")
		}
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes object then record", func(t *testing.T) {
		store := newFakeStore()
		svc, repo := newTestService(store)

		result, err := svc.Ingest(ctx, IngestInput{Data: []byte("to delete"), Filename: "f.jpg", ContentType: "image/jpeg"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		if err := svc.Delete(ctx, result.Asset.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if store.deletes != 1 {
			t.Errorf("deletes = %d, want 1", store.deletes)
		}
		if _, err := repo.FindByID(ctx, result.Asset.ID); !errors.Is(err, ErrAssetNotFound) {
			t.Error("record must be gone after delete")
		}
	})

	t.Run("failed provider delete keeps the record", func(t *testing.T) {
		store := newFakeStore()
		svc, repo := newTestService(store)

		result, err := svc.Ingest(ctx, IngestInput{Data: []byte("sticky"), Filename: "g.jpg", ContentType: "image/jpeg"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		store.delErr = errors.New("provider down")
		if err := svc.Delete(ctx, result.Asset.ID); err == nil {
			t.Fatal("expected delete failure to surface")
		}
		if _, err := repo.FindByID(ctx, result.Asset.ID); err != nil {
			t.Error("record must survive a failed provider delete")
		}
	})

	t.Run("unknown asset", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore())
		if err := svc.Delete(ctx, "missing-id"); !errors.Is(err, ErrAssetNotFound) {
			t.Errorf("expected ErrAssetNotFound, got %v", err)
		}
	})
}
