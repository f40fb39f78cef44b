package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNominatimClient_RequiresUserAgent(t *testing.T) {
	_, err := NewNominatimClient("")
	assert.ErrorIs(t, err, ErrUserAgentRequired)
}

func TestNominatimClient_Resolve(t *testing.T) {
	t.Run("builds locality name from address parts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/reverse", r.URL.Path)
			assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
			assert.Equal(t, "-37.8", r.URL.Query().Get("lat"))
			assert.Equal(t, "144.9633", r.URL.Query().Get("lon"))
			assert.Equal(t, "gallery-test/1.0", r.Header.Get("User-Agent"))
			assert.Equal(t, "en", r.Header.Get("Accept-Language"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"display_name": "Melbourne, City of Melbourne, Victoria, Australia",
				"address": {"city": "Melbourne", "state": "Victoria", "country": "Australia"}
			}`))
		}))
		defer server.Close()

		client, err := NewNominatimClient("gallery-test/1.0", WithBaseURL(server.URL))
		require.NoError(t, err)

		name, err := client.Resolve(context.Background(), -37.8, 144.9633)
		require.NoError(t, err)
		assert.Equal(t, "Melbourne, Victoria, Australia", name)
	})

	t.Run("falls back to display name without locality", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"display_name": "Somewhere remote", "address": {}}`))
		}))
		defer server.Close()

		client, err := NewNominatimClient("gallery-test/1.0", WithBaseURL(server.URL))
		require.NoError(t, err)

		name, err := client.Resolve(context.Background(), 71.0, -42.0)
		require.NoError(t, err)
		assert.Equal(t, "Somewhere remote", name)
	})

	t.Run("sends api key when configured", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			_, _ = w.Write([]byte(`{"display_name": "x", "address": {}}`))
		}))
		defer server.Close()

		client, err := NewNominatimClient("gallery-test/1.0", WithBaseURL(server.URL), WithAPIKey("test-key"))
		require.NoError(t, err)

		_, err = client.Resolve(context.Background(), 1, 2)
		require.NoError(t, err)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewNominatimClient("gallery-test/1.0", WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.Resolve(context.Background(), 1, 2)
		assert.ErrorIs(t, err, ErrLookupFailed)
	})

	t.Run("slow provider is cut off by the timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}))
		defer server.Close()

		client, err := NewNominatimClient("gallery-test/1.0",
			WithBaseURL(server.URL),
			WithTimeout(50*time.Millisecond),
		)
		require.NoError(t, err)

		start := time.Now()
		_, err = client.Resolve(context.Background(), 1, 2)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "expected deadline error, got %v", err)
		assert.Less(t, time.Since(start), time.Second, "lookup must not wait out the slow provider")
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"display_name": `))
		}))
		defer server.Close()

		client, err := NewNominatimClient("gallery-test/1.0", WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.Resolve(context.Background(), 1, 2)
		assert.Error(t, err)
	})
}

func TestDisabled_Resolve(t *testing.T) {
	name, err := Disabled{}.Resolve(context.Background(), -37.8, 144.9633)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestFormatCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     string
	}{
		{-37.8, 144.9633, "37.8000°S 144.9633°E"},
		{48.858222, 2.2945, "48.8582°N 2.2945°E"},
		{37.7749, -122.419416, "37.7749°N 122.4194°W"},
		{0, 0, "0.0000°N 0.0000°E"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCoordinates(tt.lat, tt.lon))
	}
}
