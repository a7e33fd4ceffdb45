package mapbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

const featureJSON = `{
	"features": [
		{"place_name": "Galle Road, Colombo 03, Sri Lanka", "text": "Galle Road"}
	]
}`

func newTestGeocoder(baseURL string) *Client {
	c := NewClient("test-token", 5*time.Second, observability.NewMetricsForTesting(), observability.NewLogger("error", "text"))
	c.baseURL = baseURL
	return c
}

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Mapbox expects lon,lat in the path.
		assert.Contains(t, r.URL.Path, "79.861200,6.927100.json")
		assert.Equal(t, "test-token", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(featureJSON))
	}))
	defer srv.Close()

	address, err := newTestGeocoder(srv.URL).ReverseGeocode(context.Background(), 6.9271, 79.8612)
	require.NoError(t, err)
	assert.Equal(t, "Galle Road, Colombo 03, Sri Lanka", address)
}

func TestReverseGeocodeNoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer srv.Close()

	address, err := newTestGeocoder(srv.URL).ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, address)
}

func TestReverseGeocodeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestGeocoder(srv.URL).ReverseGeocode(context.Background(), 6.9271, 79.8612)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
