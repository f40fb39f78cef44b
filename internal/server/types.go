// Package server provides the HTTP server for the media ingestion API.
// It includes handlers, middleware, routes, and DTOs separated from
// domain types.
package server

import (
	"time"

	"github.com/bigfa/pluto/internal/media"
)

// UploadForm carries the non-file fields of a multipart upload.
type UploadForm struct {
	// Provider selects the storage backend; empty uses the default.
	Provider string `validate:"omitempty,oneof=local r2 upyun cos"`
	// Folder is an optional object key prefix.
	Folder string `validate:"omitempty,max=128"`
}

// AssetResponse is the HTTP representation of an ingested asset.
type AssetResponse struct {
	ID           string     `json:"id"`
	Provider     string     `json:"provider"`
	ObjectKey    string     `json:"object_key"`
	ContentHash  string     `json:"content_hash"`
	PublicURL    string     `json:"public_url"`
	SizeBytes    int64      `json:"size_bytes"`
	MimeType     string     `json:"mime_type"`
	Filename     string     `json:"filename"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
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
	CreatedAt    time.Time  `json:"created_at"`
}

// UploadResponse is returned by POST /media. Duplicate distinguishes
// a skipped re-upload (soft warning in the UI) from a fresh asset.
type UploadResponse struct {
	Asset     AssetResponse `json:"asset"`
	Duplicate bool          `json:"duplicate"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// newAssetResponse maps a domain asset onto its DTO.
func newAssetResponse(a *media.Asset) AssetResponse {
	return AssetResponse{
		ID:           a.ID,
		Provider:     string(a.Provider),
		ObjectKey:    a.ObjectKey,
		ContentHash:  a.ContentHash,
		PublicURL:    a.PublicURL,
		SizeBytes:    a.SizeBytes,
		MimeType:     a.MimeType,
		Filename:     a.Filename,
		Width:        a.Width,
		Height:       a.Height,
		CameraMake:   a.CameraMake,
		CameraModel:  a.CameraModel,
		Lens:         a.Lens,
		Aperture:     a.Aperture,
		ShutterSpeed: a.ShutterSpeed,
		ISO:          a.ISO,
		FocalLength:  a.FocalLength,
		TakenAt:      a.TakenAt,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		LocationName: a.LocationName,
		CreatedAt:    a.CreatedAt,
	}
}
