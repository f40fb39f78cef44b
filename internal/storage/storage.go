// Package storage provides object storage behind multiple incompatible
// cloud protocols. It defines the Store interface (port) and one
// implementation per provider: local disk, bearer-token bucket (R2),
// custom-HMAC bucket (UpYun) and canonical-request-signature bucket
// (COS). Every remote adapter speaks raw HTTP; there is no vendor SDK.
package storage

import (
	"context"
	"errors"
)

// Provider identifies a storage backend.
type Provider string

const (
	// ProviderLocal stores objects on the local filesystem.
	ProviderLocal Provider = "local"
	// ProviderR2 stores objects in a bucket behind a bearer token.
	ProviderR2 Provider = "r2"
	// ProviderUpyun stores objects in an UpYun bucket with per-request
	// HMAC-SHA1 signing.
	ProviderUpyun Provider = "upyun"
	// ProviderCOS stores objects in a Tencent COS bucket with
	// canonical-request signing.
	ProviderCOS Provider = "cos"
)

// IsValid returns true if the provider is a known backend.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderLocal, ProviderR2, ProviderUpyun, ProviderCOS:
		return true
	}
	return false
}

// Static errors shared by all storage adapters.
var (
	// ErrMissingCredentials is returned when an adapter is constructed
	// without the configuration it needs. It is raised before any
	// network or filesystem call; an adapter never attempts a request
	// with partial credentials.
	ErrMissingCredentials = errors.New("storage: missing provider credentials")
	// ErrInvalidObjectKey is returned for keys that are empty or would
	// escape the storage root.
	ErrInvalidObjectKey = errors.New("storage: invalid object key")
	// ErrRequestFailed is returned when a provider responds with a
	// non-2xx status.
	ErrRequestFailed = errors.New("storage: provider request failed")
)

// Store defines the capability interface every provider implements.
// Adapters perform no retries; a failed request is surfaced
// immediately and any retry policy belongs to the caller.
type Store interface {
	// Put uploads data under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes the object under key. Deleting a missing key is
	// success, not an error.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the absolute browser-resolvable URL for key.
	PublicURL(key string) string
}
