package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigfa/pluto/internal/exif"
	"github.com/bigfa/pluto/internal/geocode"
	"github.com/bigfa/pluto/internal/media/objectkey"
	"github.com/bigfa/pluto/internal/storage"
)

// Static errors for the ingestion service.
var (
	// ErrEmptyUpload is returned when the upload contains no bytes.
	ErrEmptyUpload = errors.New("media: empty upload")
	// ErrUnknownProvider is returned when no store is registered for
	// the requested provider.
	ErrUnknownProvider = errors.New("media: unknown storage provider")
)

// IngestInput contains one upload handed to the ingestion service.
type IngestInput struct {
	// Data is the raw file content.
	Data []byte
	// Filename is the declared original filename.
	Filename string
	// ContentType is the declared MIME type.
	ContentType string
	// Provider selects the storage backend; empty means the service
	// default.
	Provider storage.Provider
	// Folder is an optional key prefix.
	Folder string
}

// IngestResult is the outcome of a successful ingestion. Duplicate
// is true when the bytes were already known; Asset then references
// the existing record and no upload was performed.
type IngestResult struct {
	Asset     *Asset
	Duplicate bool
}

// Service orchestrates media ingestion: hash, dedup check, metadata
// extraction, key generation, provider upload, place resolution and
// record assembly, in that order. Each ingestion is sequential and
// independent; the only shared state is the dedup index behind the
// Repository port.
type Service struct {
	repo            Repository
	stores          map[storage.Provider]storage.Store
	geocoder        geocode.Resolver
	logger          *slog.Logger
	extract         func(data []byte) (exif.Metadata, error)
	defaultProvider storage.Provider
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithGeocoder sets the reverse-geocoding strategy.
func WithGeocoder(r geocode.Resolver) ServiceOption {
	return func(s *Service) {
		s.geocoder = r
	}
}

// WithDefaultProvider sets the provider used when an upload does not
// name one.
func WithDefaultProvider(p storage.Provider) ServiceOption {
	return func(s *Service) {
		s.defaultProvider = p
	}
}

// WithExtractor overrides the metadata extractor, mainly for tests.
func WithExtractor(fn func(data []byte) (exif.Metadata, error)) ServiceOption {
	return func(s *Service) {
		s.extract = fn
	}
}

// NewService creates an ingestion Service over the given repository
// and provider registry.
func NewService(repo Repository, stores map[storage.Provider]storage.Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:            repo,
		stores:          stores,
		geocoder:        geocode.Disabled{},
		logger:          logger,
		extract:         exif.Extract,
		defaultProvider: storage.ProviderLocal,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest turns uploaded bytes into a stored, metadata-enriched asset.
// Identical bytes short-circuit to the existing asset before any
// upload; upload failure aborts the whole ingestion with nothing
// persisted.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if len(input.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	provider := input.Provider
	if provider == "" {
		provider = s.defaultProvider
	}
	store, ok := s.stores[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	hash := ContentHash(input.Data)

	existing, err := s.repo.FindByHash(ctx, hash)
	if err == nil {
		s.logger.Info("duplicate upload skipped",
			slog.String("asset_id", existing.ID),
			slog.String("content_hash", hash),
		)
		return &IngestResult{Asset: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, ErrAssetNotFound) {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	meta, err := s.extract(input.Data)
	if err != nil {
		// Extraction failure only costs the fields it would have
		// populated.
		s.logger.Debug("metadata extraction incomplete",
			slog.String("filename", input.Filename),
			slog.String("error", err.Error()),
		)
	}

	keyTime := time.Now().UTC()
	if meta.TakenAt != nil {
		keyTime = *meta.TakenAt
	}
	key, err := objectkey.Generate(input.Filename, keyTime, input.Folder)
	if err != nil {
		return nil, fmt.Errorf("generate object key: %w", err)
	}

	if err := store.Put(ctx, key, input.Data, input.ContentType); err != nil {
		return nil, fmt.Errorf("upload to %s: %w", provider, err)
	}

	asset := NewAsset()
	asset.Provider = provider
	asset.ObjectKey = key
	asset.ContentHash = hash
	asset.PublicURL = store.PublicURL(key)
	asset.SizeBytes = int64(len(input.Data))
	asset.MimeType = input.ContentType
	asset.Filename = input.Filename
	applyMetadata(asset, &meta)

	if asset.HasLocation() {
		asset.LocationName = s.resolvePlace(ctx, *asset.Latitude, *asset.Longitude)
	}

	if err := s.repo.Create(ctx, asset); err != nil {
		if errors.Is(err, ErrHashExists) {
			// A concurrent ingestion of the same bytes won the
			// check-then-insert race. Drop our object and hand back
			// the winner's asset.
			if delErr := store.Delete(ctx, key); delErr != nil {
				s.logger.Warn("failed to remove object after losing dedup race",
					slog.String("object_key", key),
					slog.String("error", delErr.Error()),
				)
			}
			winner, findErr := s.repo.FindByHash(ctx, hash)
			if findErr != nil {
				return nil, fmt.Errorf("load winning duplicate: %w", findErr)
			}
			return &IngestResult{Asset: winner, Duplicate: true}, nil
		}
		return nil, fmt.Errorf("persist asset: %w", err)
	}

	s.logger.Info("asset ingested",
		slog.String("asset_id", asset.ID),
		slog.String("provider", string(provider)),
		slog.String("object_key", key),
		slog.Int64("size_bytes", asset.SizeBytes),
	)

	return &IngestResult{Asset: asset}, nil
}

// Get retrieves an asset by ID.
func (s *Service) Get(ctx context.Context, id string) (*Asset, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all assets, newest first.
func (s *Service) List(ctx context.Context) ([]*Asset, error) {
	return s.repo.List(ctx)
}

// Delete removes an asset. The storage object is deleted before the
// record: a record momentarily pointing at nothing beats a storage
// object nobody can ever clean up, so a failed provider delete keeps
// the record in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	store, ok := s.stores[asset.Provider]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, asset.Provider)
	}

	if err := store.Delete(ctx, asset.ObjectKey); err != nil {
		return fmt.Errorf("delete object from %s: %w", asset.Provider, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete asset record: %w", err)
	}

	s.logger.Info("asset deleted",
		slog.String("asset_id", id),
		slog.String("provider", string(asset.Provider)),
		slog.String("object_key", asset.ObjectKey),
	)

	return nil
}

// resolvePlace asks the geocoder for a place name and falls back to
// a formatted coordinate string, so the field is never unresolved
// when GPS exists. Geocoding failures are absorbed.
func (s *Service) resolvePlace(ctx context.Context, lat, lon float64) string {
	name, err := s.geocoder.Resolve(ctx, lat, lon)
	if err != nil {
		s.logger.Debug("reverse geocoding failed",
			slog.Float64("lat", lat),
			slog.Float64("lon", lon),
			slog.String("error", err.Error()),
		)
	}
	if name == "" {
		return geocode.FormatCoordinates(lat, lon)
	}
	return name
}

// applyMetadata copies extracted metadata onto the asset. Dimensions
// are only taken when both are positive.
func applyMetadata(asset *Asset, meta *exif.Metadata) {
	if meta.Width > 0 && meta.Height > 0 {
		asset.Width = meta.Width
		asset.Height = meta.Height
	}
	asset.CameraMake = meta.CameraMake
	asset.CameraModel = meta.CameraModel
	asset.Lens = meta.Lens
	asset.Aperture = meta.Aperture
	asset.ShutterSpeed = meta.ShutterSpeed
	asset.ISO = meta.ISO
	asset.FocalLength = meta.FocalLength
	asset.TakenAt = meta.TakenAt
	asset.Latitude = meta.Latitude
	asset.Longitude = meta.Longitude
	asset.RawMetadata = meta.Raw
}
