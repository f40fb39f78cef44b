// Package media provides the MediaAsset aggregate and the ingestion
// service that turns uploaded bytes into a content-addressed, durably
// stored asset record. It includes repository interfaces for the
// dedup index and persisted records.
package media

import (
	"time"

	"github.com/google/uuid"

	"github.com/bigfa/pluto/internal/storage"
)

// Asset represents a single ingested media object.
// It is created exactly once per distinct content hash; identity fields
// (ID, Provider, ObjectKey, ContentHash) are immutable after creation.
type Asset struct {
	// ID is the unique identifier assigned at ingestion.
	ID string `json:"id"`
	// Provider identifies the storage backend holding the object.
	Provider storage.Provider `json:"provider"`
	// ObjectKey is the provider-relative path of the stored object.
	ObjectKey string `json:"object_key"`
	// ContentHash is the hex SHA-256 digest of the raw bytes, used as
	// the de-duplication key.
	ContentHash string `json:"content_hash"`
	// PublicURL is the browser-resolvable URL of the stored object.
	PublicURL string `json:"public_url"`
	// SizeBytes is the size of the raw upload.
	SizeBytes int64 `json:"size_bytes"`
	// MimeType is the declared content type of the upload.
	MimeType string `json:"mime_type"`
	// Filename is the declared original filename.
	Filename string `json:"filename"`

	// Width and Height are the pixel dimensions, zero when unknown.
	// When present both are positive.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Capture metadata. All optional; absence is normal for
	// non-photographic or stripped files.
	CameraMake   string     `json:"camera_make,omitempty"`
	CameraModel  string     `json:"camera_model,omitempty"`
	Lens         string     `json:"lens,omitempty"`
	Aperture     string     `json:"aperture,omitempty"`
	ShutterSpeed string     `json:"shutter_speed,omitempty"`
	ISO          string     `json:"iso,omitempty"`
	FocalLength  string     `json:"focal_length,omitempty"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	LocationName string     `json:"location_name,omitempty"`

	// RawMetadata is the full flattened tag set as serialized JSON,
	// kept verbatim so field-mapping changes never require re-reading
	// original files.
	RawMetadata []byte `json:"-"`

	// CreatedAt is when the asset was ingested.
	CreatedAt time.Time `json:"created_at"`
}

// NewAsset creates an Asset with a generated ID and creation timestamp.
func NewAsset() *Asset {
	return &Asset{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// HasLocation returns true when both GPS coordinates are present.
func (a *Asset) HasLocation() bool {
	return a.Latitude != nil && a.Longitude != nil
}
