// Package openmeteo fetches daily forecasts from the Open-Meteo API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
)

// Client fetches the daily precipitation and peak wind outlook for a fixed
// location.
type Client struct {
	httpClient *http.Client
	baseURL    string
	lat, lon   float64
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client for the given coordinates.
func NewClient(baseURL string, lat, lon float64, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		lat:     lat,
		lon:     lon,
		logger:  logger,
	}
}

// Fetch returns the daily forecast. The API resolves the timezone from the
// coordinates so day boundaries match local time at the monitored location.
func (c *Client) Fetch(ctx context.Context) (domain.Forecast, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(c.lat, 'f', 4, 64)},
		"longitude": {strconv.FormatFloat(c.lon, 'f', 4, 64)},
		"daily":     {"precipitation_sum,wind_speed_10m_max"},
		"timezone":  {"auto"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Forecast{}, domain.Classify(domain.KindUnavailable, fmt.Errorf("forecast request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Forecast{}, domain.Classify(domain.KindUnavailable,
			fmt.Errorf("open-meteo: status %d: %s", resp.StatusCode, body))
	}

	var forecast domain.Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return domain.Forecast{}, fmt.Errorf("decode forecast: %w", err)
	}

	if forecast.Daily.Days() == 0 {
		return domain.Forecast{}, fmt.Errorf("open-meteo: empty daily series")
	}
	return forecast, nil
}
