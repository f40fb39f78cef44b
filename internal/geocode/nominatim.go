package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Static errors for the Nominatim client.
var (
	// ErrUserAgentRequired is returned when no User-Agent is
	// configured; the Nominatim usage policy rejects anonymous
	// clients.
	ErrUserAgentRequired = errors.New("geocode: user agent is required")
	// ErrLookupFailed is returned when the provider responds with a
	// non-2xx status.
	ErrLookupFailed = errors.New("geocode: lookup failed")
)

// defaultTimeout bounds every lookup. The timeout is enforced with
// context cancellation so a hung provider cannot stall an ingestion.
const defaultTimeout = 3 * time.Second

// NominatimClient resolves coordinates against a Nominatim-compatible
// reverse endpoint. LocationIQ exposes the same API with an added key
// parameter, so both providers share this client.
type NominatimClient struct {
	baseURL    string
	apiKey     string
	userAgent  string
	language   string
	timeout    time.Duration
	httpClient *http.Client
}

// NominatimOption is a function that configures a NominatimClient.
type NominatimOption func(*NominatimClient)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(base string) NominatimOption {
	return func(c *NominatimClient) {
		c.baseURL = base
	}
}

// WithAPIKey sets the provider API key, sent as the key parameter.
func WithAPIKey(key string) NominatimOption {
	return func(c *NominatimClient) {
		c.apiKey = key
	}
}

// WithLanguage sets the Accept-Language header for localized names.
func WithLanguage(lang string) NominatimOption {
	return func(c *NominatimClient) {
		c.language = lang
	}
}

// WithTimeout sets the hard per-lookup timeout.
func WithTimeout(d time.Duration) NominatimOption {
	return func(c *NominatimClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) NominatimOption {
	return func(c *NominatimClient) {
		c.httpClient = hc
	}
}

// NewNominatimClient creates a reverse-geocoding client. userAgent
// identifies this deployment to the provider and is required.
func NewNominatimClient(userAgent string, opts ...NominatimOption) (*NominatimClient, error) {
	if userAgent == "" {
		return nil, ErrUserAgentRequired
	}
	c := &NominatimClient{
		baseURL:    "https://nominatim.openstreetmap.org",
		userAgent:  userAgent,
		language:   "en",
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// reverseResponse is the subset of the provider payload we read.
type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Resolve performs one reverse lookup under the configured timeout.
func (c *NominatimClient) Resolve(ctx context.Context, lat, lon float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("zoom", "14")
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("geocode: create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.language)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("geocode: decode response: %w", err)
	}

	return placeName(body), nil
}

// placeName prefers the shortest locality description and falls back
// to the full display name.
func placeName(body reverseResponse) string {
	locality := body.Address.City
	if locality == "" {
		locality = body.Address.Town
	}
	if locality == "" {
		locality = body.Address.Village
	}
	if locality != "" {
		name := locality
		if body.Address.State != "" && body.Address.State != locality {
			name += ", " + body.Address.State
		}
		if body.Address.Country != "" {
			name += ", " + body.Address.Country
		}
		return name
	}
	return body.DisplayName
}
