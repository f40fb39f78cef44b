package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

const assetColumns = `id, provider, object_key, content_hash, public_url, size_bytes,
	mime_type, filename, width, height, camera_make, camera_model, lens, aperture,
	shutter_speed, iso, focal_length, taken_at, latitude, longitude, location_name,
	raw_metadata, created_at`

// PostgresRepository is a pgx-backed implementation of Repository.
// Content-hash uniqueness is enforced by a unique constraint, so the
// check-then-insert race between concurrent ingestions is resolved by
// the database: the loser sees ErrHashExists.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a repository over the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new asset. A unique violation on content_hash maps
// to ErrHashExists.
func (r *PostgresRepository) Create(ctx context.Context, asset *Asset) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO media_assets (`+assetColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		         $16, $17, $18, $19, $20, $21, $22, $23)`,
		asset.ID, asset.Provider, asset.ObjectKey, asset.ContentHash, asset.PublicURL,
		asset.SizeBytes, asset.MimeType, asset.Filename, zeroToNil(asset.Width),
		zeroToNil(asset.Height), asset.CameraMake, asset.CameraModel, asset.Lens,
		asset.Aperture, asset.ShutterSpeed, asset.ISO, asset.FocalLength,
		asset.TakenAt, asset.Latitude, asset.Longitude, asset.LocationName,
		asset.RawMetadata, asset.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrHashExists
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// FindByID fetches an asset by its UUID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE id = $1`, id)
	return scanAsset(row)
}

// FindByHash fetches an asset by its content hash.
func (r *PostgresRepository) FindByHash(ctx context.Context, hash string) (*Asset, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE content_hash = $1`, hash)
	return scanAsset(row)
}

// List returns all assets, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Asset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+assetColumns+` FROM media_assets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// Delete removes an asset record.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media_assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// scanAsset reads one asset row, mapping nullable columns back onto
// the zero values the domain type uses.
func scanAsset(row pgx.Row) (*Asset, error) {
	a := &Asset{}
	var width, height *int
	err := row.Scan(
		&a.ID, &a.Provider, &a.ObjectKey, &a.ContentHash, &a.PublicURL, &a.SizeBytes,
		&a.MimeType, &a.Filename, &width, &height, &a.CameraMake, &a.CameraModel,
		&a.Lens, &a.Aperture, &a.ShutterSpeed, &a.ISO, &a.FocalLength, &a.TakenAt,
		&a.Latitude, &a.Longitude, &a.LocationName, &a.RawMetadata, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	if width != nil {
		a.Width = *width
	}
	if height != nil {
		a.Height = *height
	}
	return a, nil
}

// zeroToNil stores absent dimensions as NULL instead of 0.
func zeroToNil(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

// isUniqueViolation reports whether err is a Postgres unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
