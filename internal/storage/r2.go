package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Compile-time check that R2Store implements Store.
var _ Store = (*R2Store)(nil)

// R2Store implements Store against a bucket fronted by a worker that
// authenticates with a pre-shared bearer token. There is no request
// signing beyond the token itself.
type R2Store struct {
	endpoint   string
	token      string
	domain     string
	httpClient *http.Client
}

// R2Option is a function that configures an R2Store.
type R2Option func(*R2Store)

// WithR2HTTPClient sets a custom HTTP client.
func WithR2HTTPClient(c *http.Client) R2Option {
	return func(s *R2Store) {
		s.httpClient = c
	}
}

// NewR2Store creates an R2Store. endpoint is the bucket API base URL,
// token the pre-shared bearer credential, and domain the public base
// URL objects are served from. All three are required.
func NewR2Store(endpoint, token, domain string, opts ...R2Option) (*R2Store, error) {
	if endpoint == "" || token == "" || domain == "" {
		return nil, fmt.Errorf("%w: r2 endpoint, token and domain are required", ErrMissingCredentials)
	}
	s := &R2Store{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		token:      token,
		domain:     strings.TrimSuffix(domain, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put uploads data under key with a plain authenticated PUT.
func (s *R2Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.endpoint+"/"+key, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("r2: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", contentType)

	return s.do(req, nil)
}

// Delete removes the object under key. A 404 from the provider is
// treated as success.
func (s *R2Store) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.endpoint+"/"+key, nil)
	if err != nil {
		return fmt.Errorf("r2: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	okStatus := map[int]bool{http.StatusNotFound: true}
	return s.do(req, okStatus)
}

// PublicURL returns the public domain joined with key.
func (s *R2Store) PublicURL(key string) string {
	return s.domain + "/" + key
}

// do executes a request and maps non-2xx responses (outside extraOK)
// to ErrRequestFailed.
func (s *R2Store) do(req *http.Request, extraOK map[int]bool) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("r2: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if extraOK[resp.StatusCode] {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: r2 status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
}
