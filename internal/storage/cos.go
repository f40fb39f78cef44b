package storage

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 - the COS signing protocol is HMAC-SHA1 based
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// cosSignatureWindow is how long a generated signature stays valid.
const cosSignatureWindow = 10 * time.Minute

// Compile-time check that COSStore implements Store.
var _ Store = (*COSStore)(nil)

// COSStore implements Store against the Tencent COS XML API using its
// canonical-request signature scheme. Header names and values are
// lowercased and lexicographically sorted identically in the signed
// string and on the wire; a mismatch makes the provider reject the
// request.
type COSStore struct {
	bucket     string
	region     string
	secretID   string
	secretKey  string
	domain     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// COSOption is a function that configures a COSStore.
type COSOption func(*COSStore)

// WithCOSHTTPClient sets a custom HTTP client.
func WithCOSHTTPClient(c *http.Client) COSOption {
	return func(s *COSStore) {
		s.httpClient = c
	}
}

// WithCOSBaseURL overrides the bucket endpoint, for tests.
func WithCOSBaseURL(base string) COSOption {
	return func(s *COSStore) {
		s.baseURL = strings.TrimSuffix(base, "/")
	}
}

// WithCOSClock overrides the clock used for the signature window.
func WithCOSClock(now func() time.Time) COSOption {
	return func(s *COSStore) {
		s.now = now
	}
}

// NewCOSStore creates a COSStore. Bucket, region, secret ID and
// secret key are required. domain overrides the default public URL
// base when set.
func NewCOSStore(bucket, region, secretID, secretKey, domain string, opts ...COSOption) (*COSStore, error) {
	if bucket == "" || region == "" || secretID == "" || secretKey == "" {
		return nil, fmt.Errorf("%w: cos bucket, region, secret id and secret key are required", ErrMissingCredentials)
	}
	s := &COSStore{
		bucket:     bucket,
		region:     region,
		secretID:   secretID,
		secretKey:  secretKey,
		domain:     strings.TrimSuffix(domain, "/"),
		baseURL:    fmt.Sprintf("https://%s.cos.%s.myqcloud.com", bucket, region),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// cosAuthorization builds the q-sign authorization value for one
// request. keyTime is the "start;end" validity window; headers are
// the headers being sent that participate in the signature. PUT and
// DELETE requests sign no query parameters.
func cosAuthorization(secretID, secretKey, method, uriPath, keyTime string, headers map[string]string) string {
	signKeyMac := hmac.New(sha1.New, []byte(secretKey))
	signKeyMac.Write([]byte(keyTime))
	signKey := hex.EncodeToString(signKeyMac.Sum(nil))

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+url.QueryEscape(headers[http.CanonicalHeaderKey(name)]))
	}
	headerString := strings.Join(pairs, "&")

	canonicalRequest := strings.ToLower(method) + "\n" + uriPath + "\n" + "\n" + headerString + "\n"

	requestSum := sha1.Sum([]byte(canonicalRequest)) // #nosec G401
	stringToSign := "sha1\n" + keyTime + "\n" + hex.EncodeToString(requestSum[:]) + "\n"

	signatureMac := hmac.New(sha1.New, []byte(signKey))
	signatureMac.Write([]byte(stringToSign))
	signature := hex.EncodeToString(signatureMac.Sum(nil))

	return strings.Join([]string{
		"q-sign-algorithm=sha1",
		"q-ak=" + secretID,
		"q-sign-time=" + keyTime,
		"q-key-time=" + keyTime,
		"q-header-list=" + strings.Join(names, ";"),
		"q-url-param-list=",
		"q-signature=" + signature,
	}, "&")
}

// Put uploads data under key.
func (s *COSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	headers := map[string]string{"Content-Type": contentType}
	return s.send(ctx, http.MethodPut, key, data, headers, nil)
}

// Delete removes the object under key. COS answers 404 for missing
// objects; that is treated as success.
func (s *COSStore) Delete(ctx context.Context, key string) error {
	okStatus := map[int]bool{http.StatusNotFound: true}
	return s.send(ctx, http.MethodDelete, key, nil, map[string]string{}, okStatus)
}

// PublicURL returns the configured domain joined with key, falling
// back to the bucket endpoint.
func (s *COSStore) PublicURL(key string) string {
	if s.domain != "" {
		return s.domain + "/" + key
	}
	return s.baseURL + "/" + key
}

// send issues one signed request with a fresh signature window.
func (s *COSStore) send(ctx context.Context, method, key string, body []byte, headers map[string]string, extraOK map[int]bool) error {
	uriPath := "/" + key

	endpoint, err := url.Parse(s.baseURL)
	if err != nil {
		return fmt.Errorf("cos: parse endpoint: %w", err)
	}
	headers["Host"] = endpoint.Host

	start := s.now().Unix()
	keyTime := fmt.Sprintf("%d;%d", start, start+int64(cosSignatureWindow.Seconds()))
	authorization := cosAuthorization(s.secretID, s.secretKey, method, uriPath, keyTime, headers)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+uriPath, reader)
	if err != nil {
		return fmt.Errorf("cos: create request: %w", err)
	}
	for name, value := range headers {
		if name == "Host" {
			req.Host = value
			continue
		}
		req.Header.Set(name, value)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cos: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if extraOK[resp.StatusCode] {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: cos status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
}
