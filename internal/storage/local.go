package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Compile-time check that LocalStore implements Store.
var _ Store = (*LocalStore)(nil)

// LocalStore implements Store on the local filesystem. Keys resolve
// against a base directory; any key that would escape it is rejected
// before touching the filesystem, even though generated keys never
// contain traversal segments.
type LocalStore struct {
	baseDir   string
	publicURL string
}

// NewLocalStore creates a LocalStore rooted at baseDir. The directory
// is created if it does not exist. publicURL is the base joined with
// object keys to form public URLs; when empty, PublicURL falls back
// to a same-origin path.
func NewLocalStore(baseDir, publicURL string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: local storage directory not set", ErrMissingCredentials)
	}
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{
		baseDir:   filepath.Clean(baseDir),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// resolve maps key to an absolute path under the base directory,
// rejecting empty keys and path-traversal escapes.
func (s *LocalStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidObjectKey)
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes storage root", ErrInvalidObjectKey, key)
	}
	return path, nil
}

// Put writes data under key, creating intermediate directories.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

// Delete removes the object under key. A missing object is success.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// PublicURL returns the configured base URL joined with key, or a
// same-origin path when no base is configured.
func (s *LocalStore) PublicURL(key string) string {
	if s.publicURL == "" {
		return "/" + key
	}
	return s.publicURL + "/" + key
}
