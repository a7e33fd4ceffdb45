// Package gemini asks Google's Gemini API for a structured weather risk
// analysis. The model is prompted to answer with a strict JSON document;
// anything that does not parse into the expected shape is rejected so a
// hallucinated response never reaches operators.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
)

// promptWindowDays is how many forecast days the model sees. Wider than the
// deterministic engine's window so the model can reason about trends.
const promptWindowDays = 5

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Gemini client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// Analyze submits the forecast and recent incident counts and returns the
// model's risk assessment. A throttled response comes back classified as
// rate-limited so the caller can fall back to stale cached data.
func (c *Client) Analyze(ctx context.Context, forecast domain.Forecast, recentIncidents map[domain.Category]int) (domain.AlertAnalysis, error) {
	reqBody := request{
		Contents: []content{{Parts: []part{{Text: buildPrompt(forecast, recentIncidents)}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.3,
			MaxOutputTokens: 1024,
		},
	}

	buf, err := json.Marshal(reqBody)
	if err != nil {
		return domain.AlertAnalysis{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?key="+c.apiKey, strings.NewReader(string(buf)))
	if err != nil {
		return domain.AlertAnalysis{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AlertAnalysis{}, domain.Classify(domain.KindUnavailable, fmt.Errorf("gemini request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.AlertAnalysis{}, domain.Classify(domain.KindRateLimited, fmt.Errorf("gemini: throttled"))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.AlertAnalysis{}, domain.Classify(domain.KindUnavailable,
			fmt.Errorf("gemini: status %d: %s", resp.StatusCode, body))
	}

	var geminiResp response
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return domain.AlertAnalysis{}, fmt.Errorf("decode response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return domain.AlertAnalysis{}, fmt.Errorf("gemini: empty response")
	}

	return parseAnalysis(geminiResp.Candidates[0].Content.Parts[0].Text)
}

// parseAnalysis extracts the JSON document from the model's text, which may
// arrive wrapped in a markdown code fence, and validates its shape.
func parseAnalysis(text string) (domain.AlertAnalysis, error) {
	raw := extractJSON(text)

	var analysis domain.AlertAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return domain.AlertAnalysis{}, fmt.Errorf("parse analysis: %w", err)
	}

	if analysis.OverallRisk == "" {
		return domain.AlertAnalysis{}, fmt.Errorf("analysis missing overallRisk")
	}
	if analysis.Alerts == nil {
		return domain.AlertAnalysis{}, fmt.Errorf("analysis missing alerts")
	}

	for i := range analysis.Alerts {
		a := &analysis.Alerts[i]
		a.Type = normalizeCategory(a.Type)
		a.Severity = normalizeSeverity(a.Severity)
		a.Icon = domain.IconFor(a.Type)
	}
	analysis.OverallRisk = normalizeSeverity(analysis.OverallRisk)
	analysis.IsAI = true
	return analysis, nil
}

// extractJSON strips an optional ```json fence around the document.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return text
}

// normalizeCategory folds model vocabulary onto the known categories.
func normalizeCategory(cat domain.AlertCategory) domain.AlertCategory {
	switch domain.AlertCategory(strings.ToLower(strings.TrimSpace(string(cat)))) {
	case "flood", domain.AlertFloodRisk:
		return domain.AlertFloodRisk
	case "cyclone", domain.AlertCycloneRisk:
		return domain.AlertCycloneRisk
	case "landslide", domain.AlertLandslideRisk:
		return domain.AlertLandslideRisk
	case "rain", "heavy_rainfall", domain.AlertHeavyRain:
		return domain.AlertHeavyRain
	case "wind", "high_wind", domain.AlertStrongWind:
		return domain.AlertStrongWind
	default:
		return cat
	}
}

func normalizeSeverity(s domain.Severity) domain.Severity {
	folded := domain.Severity(strings.ToLower(strings.TrimSpace(string(s))))
	if folded.Rank() >= 0 {
		return folded
	}
	return domain.SeverityLow
}

func buildPrompt(forecast domain.Forecast, recentIncidents map[domain.Category]int) string {
	var b strings.Builder
	b.WriteString("You are a disaster risk analyst for Sri Lanka. Assess the weather outlook below.\n\n")
	b.WriteString("Forecast (per day):\n")

	days := forecast.Daily.Days()
	if days > promptWindowDays {
		days = promptWindowDays
	}
	for i := 0; i < days; i++ {
		fmt.Fprintf(&b, "- %s: rainfall %.1fmm, peak wind %.1fkm/h\n",
			forecast.Daily.Time[i],
			forecast.Daily.PrecipitationSum[i],
			forecast.Daily.WindSpeed10mMax[i])
	}

	if len(recentIncidents) > 0 {
		b.WriteString("\nEmergency reports in the last 24 hours:\n")
		for _, cat := range []domain.Category{
			domain.CategoryFlood, domain.CategoryLandslide, domain.CategoryMedical,
			domain.CategoryTrapped, domain.CategoryOther,
		} {
			if n := recentIncidents[cat]; n > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", cat, n)
			}
		}
	}

	b.WriteString(`
Respond with ONLY a JSON object, no prose, matching exactly:
{
  "overallRisk": "low|medium|high|critical",
  "riskScore": <0-100>,
  "primaryThreat": "<short phrase>",
  "alerts": [
    {
      "type": "flood_risk|cyclone_risk|landslide_risk|heavy_rain|strong_wind",
      "severity": "low|medium|high|critical",
      "title": "<short title>",
      "message": "<one or two sentences>",
      "affectedAreas": ["<district>"],
      "timeframe": "<when>"
    }
  ],
  "recommendations": ["<action>"],
  "summary": "<two sentences>"
}`)
	return b.String()
}

// Gemini API request/response types.

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type response struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
