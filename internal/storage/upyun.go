package storage

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"  // #nosec G501 - the UpYun protocol hashes the password with MD5
	"crypto/sha1" // #nosec G505 - the UpYun protocol signs with HMAC-SHA1
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// upyunAPIBase is the UpYun REST API endpoint.
const upyunAPIBase = "https://v0.api.upyun.com"

// Compile-time check that UpyunStore implements Store.
var _ Store = (*UpyunStore)(nil)

// UpyunStore implements Store against the UpYun REST API. Every
// request carries an Authorization header signed over the method,
// URI and the exact Date header sent with the request, so signatures
// are recomputed fresh per request and never cached.
type UpyunStore struct {
	bucket     string
	operator   string
	password   string
	domain     string
	apiBase    string
	httpClient *http.Client
	now        func() time.Time
}

// UpyunOption is a function that configures an UpyunStore.
type UpyunOption func(*UpyunStore)

// WithUpyunHTTPClient sets a custom HTTP client.
func WithUpyunHTTPClient(c *http.Client) UpyunOption {
	return func(s *UpyunStore) {
		s.httpClient = c
	}
}

// WithUpyunAPIBase overrides the REST API base URL.
func WithUpyunAPIBase(base string) UpyunOption {
	return func(s *UpyunStore) {
		s.apiBase = strings.TrimSuffix(base, "/")
	}
}

// WithUpyunClock overrides the clock used for the Date header.
func WithUpyunClock(now func() time.Time) UpyunOption {
	return func(s *UpyunStore) {
		s.now = now
	}
}

// NewUpyunStore creates an UpyunStore. Bucket, operator, password and
// public domain are all required.
func NewUpyunStore(bucket, operator, password, domain string, opts ...UpyunOption) (*UpyunStore, error) {
	if bucket == "" || operator == "" || password == "" || domain == "" {
		return nil, fmt.Errorf("%w: upyun bucket, operator, password and domain are required", ErrMissingCredentials)
	}
	s := &UpyunStore{
		bucket:     bucket,
		operator:   operator,
		password:   password,
		domain:     strings.TrimSuffix(domain, "/"),
		apiBase:    upyunAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// upyunSignature builds the UpYun authorization value for a request.
// The signed string is "<METHOD>&<URI>&<DATE>" keyed with the hex MD5
// of the operator password:
//
//	Authorization: UPYUN <operator>:base64(HMAC-SHA1(MD5(password), sign))
//
// date must be the exact string sent in the Date header.
func upyunSignature(operator, password, method, uri, date string) string {
	passwordSum := md5.Sum([]byte(password)) // #nosec G401
	key := hex.EncodeToString(passwordSum[:])

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(method + "&" + uri + "&" + date))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return "UPYUN " + operator + ":" + signature
}

// Put uploads data under key.
func (s *UpyunStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return s.send(ctx, http.MethodPut, key, data, contentType, nil)
}

// Delete removes the object under key. A 404 from the provider is
// treated as success.
func (s *UpyunStore) Delete(ctx context.Context, key string) error {
	okStatus := map[int]bool{http.StatusNotFound: true}
	return s.send(ctx, http.MethodDelete, key, nil, "", okStatus)
}

// PublicURL returns the public domain joined with key.
func (s *UpyunStore) PublicURL(key string) string {
	return s.domain + "/" + key
}

// send issues one signed request. The Date header and the signature
// are derived from the same timestamp; a new request always gets a
// new signature.
func (s *UpyunStore) send(ctx context.Context, method, key string, body []byte, contentType string, extraOK map[int]bool) error {
	uri := "/" + s.bucket + "/" + key
	date := s.now().UTC().Format(http.TimeFormat)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.apiBase+uri, reader)
	if err != nil {
		return fmt.Errorf("upyun: create request: %w", err)
	}
	req.Header.Set("Date", date)
	req.Header.Set("Authorization", upyunSignature(s.operator, s.password, method, uri, date))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upyun: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if extraOK[resp.StatusCode] {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: upyun status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
}
