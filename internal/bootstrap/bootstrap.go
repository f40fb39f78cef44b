// Package bootstrap provides dependency initialization for the media
// ingestion service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigfa/pluto/internal/config"
	"github.com/bigfa/pluto/internal/db"
	"github.com/bigfa/pluto/internal/geocode"
	"github.com/bigfa/pluto/internal/media"
	"github.com/bigfa/pluto/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	MediaService *media.Service
}

// NewDependencies creates and initializes all dependencies for the
// application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	stores, err := initStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	defaultProvider := storage.Provider(cfg.DefaultProvider)
	if _, ok := stores[defaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q: %w", cfg.DefaultProvider, storage.ErrMissingCredentials)
	}

	geocoder, err := initGeocoder(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	svc := media.NewService(
		repo,
		stores,
		logger,
		media.WithDefaultProvider(defaultProvider),
		media.WithGeocoder(geocoder),
	)

	return &Dependencies{MediaService: svc}, nil
}

// initStores builds the provider registry. The local store is always
// available; remote providers are registered only when their
// credentials are complete, so a half-configured provider can never
// receive a request.
func initStores(cfg *config.Config, logger *slog.Logger) (map[storage.Provider]storage.Store, error) {
	stores := make(map[storage.Provider]storage.Store)

	local, err := storage.NewLocalStore(cfg.LocalStorageDir, cfg.LocalPublicURL)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	stores[storage.ProviderLocal] = local

	if cfg.R2Enabled() {
		r2, err := storage.NewR2Store(cfg.R2Endpoint, cfg.R2Token, cfg.R2Domain)
		if err != nil {
			return nil, fmt.Errorf("create r2 store: %w", err)
		}
		stores[storage.ProviderR2] = r2
		logger.Info("r2 storage configured",
			slog.String("domain", cfg.R2Domain),
		)
	}

	if cfg.UpyunEnabled() {
		upyun, err := storage.NewUpyunStore(cfg.UpyunBucket, cfg.UpyunOperator, cfg.UpyunPassword, cfg.UpyunDomain)
		if err != nil {
			return nil, fmt.Errorf("create upyun store: %w", err)
		}
		stores[storage.ProviderUpyun] = upyun
		logger.Info("upyun storage configured",
			slog.String("bucket", cfg.UpyunBucket),
		)
	}

	if cfg.COSEnabled() {
		cos, err := storage.NewCOSStore(cfg.COSBucket, cfg.COSRegion, cfg.COSSecretID, cfg.COSSecretKey, cfg.COSDomain)
		if err != nil {
			return nil, fmt.Errorf("create cos store: %w", err)
		}
		stores[storage.ProviderCOS] = cos
		logger.Info("cos storage configured",
			slog.String("bucket", cfg.COSBucket),
			slog.String("region", cfg.COSRegion),
		)
	}

	return stores, nil
}

// initGeocoder selects the reverse-geocoding strategy once from
// configuration.
func initGeocoder(cfg *config.Config, logger *slog.Logger) (geocode.Resolver, error) {
	provider := strings.ToLower(cfg.GeocoderProvider)
	if provider == "" || provider == "none" {
		return geocode.Disabled{}, nil
	}

	opts := []geocode.NominatimOption{
		geocode.WithLanguage(cfg.GeocoderLang),
		geocode.WithTimeout(time.Duration(cfg.GeocoderTimeout) * time.Second),
	}
	if provider == "locationiq" {
		opts = append(opts,
			geocode.WithBaseURL("https://us1.locationiq.com/v1"),
			geocode.WithAPIKey(cfg.GeocoderAPIKey),
		)
	}

	client, err := geocode.NewNominatimClient(cfg.GeocoderUserAgent, opts...)
	if err != nil {
		return nil, fmt.Errorf("create geocoder: %w", err)
	}
	logger.Info("reverse geocoding configured",
		slog.String("provider", provider),
	)
	return client, nil
}

// initRepository selects Postgres when DATABASE_URL is set, falling
// back to the in-memory repository.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (media.Repository, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory asset repository")
		return media.NewMemoryRepository(), nil
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("using postgres asset repository")
	return media.NewPostgresRepository(pool), nil
}
