package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

const analysisJSON = `{
	"overallRisk": "high",
	"riskScore": 72,
	"primaryThreat": "riverine flooding",
	"alerts": [
		{
			"type": "flood",
			"severity": "HIGH",
			"title": "Flood Watch",
			"message": "Rising water levels expected along the Kelani basin.",
			"affectedAreas": ["Colombo", "Gampaha"],
			"timeframe": "next 48 hours"
		}
	],
	"recommendations": ["Move valuables to upper floors"],
	"summary": "Sustained rainfall will elevate flood risk."
}`

func modelReply(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
	buf, _ := json.Marshal(resp)
	return string(buf)
}

func testForecast() domain.Forecast {
	return domain.Forecast{Daily: domain.ForecastDaily{
		Time:             []string{"2026-03-01", "2026-03-02"},
		PrecipitationSum: []float64{120, 180},
		WindSpeed10mMax:  []float64{40, 60},
	}}
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, "test-key", 5*time.Second, observability.NewLogger("error", "text"))
}

func TestAnalyzeParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, 0.3, req.GenerationConfig.Temperature)
		assert.Equal(t, 1024, req.GenerationConfig.MaxOutputTokens)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "rainfall 120.0mm")

		_, _ = w.Write([]byte(modelReply(analysisJSON)))
	}))
	defer srv.Close()

	analysis, err := newTestClient(srv.URL).Analyze(context.Background(), testForecast(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.SeverityHigh, analysis.OverallRisk)
	assert.Equal(t, 72, analysis.RiskScore)
	assert.True(t, analysis.IsAI)
	require.Len(t, analysis.Alerts, 1)
	assert.Equal(t, domain.AlertFloodRisk, analysis.Alerts[0].Type)
	assert.Equal(t, domain.SeverityHigh, analysis.Alerts[0].Severity)
	assert.Equal(t, "🌊", analysis.Alerts[0].Icon)
}

func TestAnalyzeUnwrapsCodeFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(modelReply("```json\n" + analysisJSON + "\n```")))
	}))
	defer srv.Close()

	analysis, err := newTestClient(srv.URL).Analyze(context.Background(), testForecast(), nil)
	require.NoError(t, err)
	assert.Equal(t, "riverine flooding", analysis.PrimaryThreat)
}

func TestAnalyzeThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Analyze(context.Background(), testForecast(), nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
}

func TestAnalyzeRejectsShapelessReply(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"prose", "I think the weather looks fine."},
		{"missing overallRisk", `{"riskScore": 10, "alerts": []}`},
		{"missing alerts", `{"overallRisk": "low", "riskScore": 10}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(modelReply(tc.text)))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Analyze(context.Background(), testForecast(), nil)
			require.Error(t, err)
		})
	}
}

func TestAnalyzePromptIncludesIncidents(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Contents[0].Parts[0].Text
		_, _ = w.Write([]byte(modelReply(analysisJSON)))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Analyze(context.Background(), testForecast(), map[domain.Category]int{
		domain.CategoryFlood:   3,
		domain.CategoryTrapped: 1,
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "flood: 3")
	assert.Contains(t, prompt, "trapped: 1")
}

func TestNormalizeSeverityFallsBackToLow(t *testing.T) {
	assert.Equal(t, domain.SeverityLow, normalizeSeverity("catastrophic"))
	assert.Equal(t, domain.SeverityCritical, normalizeSeverity(" Critical "))
}
