package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

// scriptedAI returns queued responses in order, repeating the last one.
type scriptedAI struct {
	calls     int
	responses []func() (domain.AlertAnalysis, error)
	gotCounts map[domain.Category]int
}

func (s *scriptedAI) Analyze(_ context.Context, _ domain.Forecast, counts map[domain.Category]int) (domain.AlertAnalysis, error) {
	s.gotCounts = counts
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return s.responses[idx]()
}

func okAnalysis(threat string) func() (domain.AlertAnalysis, error) {
	return func() (domain.AlertAnalysis, error) {
		return domain.AlertAnalysis{
			OverallRisk:   domain.SeverityHigh,
			RiskScore:     70,
			PrimaryThreat: threat,
			Alerts: []domain.AlertRecord{{
				Type:      domain.AlertFloodRisk,
				Severity:  domain.SeverityHigh,
				Title:     "Flood Watch",
				Message:   "Model projects flooding in low-lying areas.",
				Timeframe: "today",
				Icon:      "🌊",
			}},
			IsAI: true,
		}, nil
	}
}

func aiError(kind domain.ErrorKind) func() (domain.AlertAnalysis, error) {
	return func() (domain.AlertAnalysis, error) {
		return domain.AlertAnalysis{}, domain.Classify(kind, errors.New("model trouble"))
	}
}

func newTestAnalyzer(client AIClient) (*Analyzer, *clockwork.FakeClock) {
	a := NewAnalyzer(client, 10*time.Minute, observability.NewMetricsForTesting(), observability.NewLogger("error", "text"))
	fc := clockwork.NewFakeClock()
	a.clock = fc
	return a, fc
}

func TestAnalyzerServesFreshCacheWithoutModelCall(t *testing.T) {
	ai := &scriptedAI{responses: []func() (domain.AlertAnalysis, error){okAnalysis("flooding")}}
	a, fc := newTestAnalyzer(ai)

	first := a.Analyze(context.Background(), domain.Forecast{}, nil)
	require.NotNil(t, first)

	fc.Advance(9 * time.Minute)
	second := a.Analyze(context.Background(), domain.Forecast{}, nil)
	require.NotNil(t, second)

	assert.Equal(t, 1, ai.calls)
	assert.Same(t, first, second)
}

func TestAnalyzerRefetchesAfterTTL(t *testing.T) {
	ai := &scriptedAI{responses: []func() (domain.AlertAnalysis, error){
		okAnalysis("flooding"),
		okAnalysis("landslides"),
	}}
	a, fc := newTestAnalyzer(ai)

	a.Analyze(context.Background(), domain.Forecast{}, nil)
	fc.Advance(11 * time.Minute)
	refreshed := a.Analyze(context.Background(), domain.Forecast{}, nil)

	require.NotNil(t, refreshed)
	assert.Equal(t, "landslides", refreshed.PrimaryThreat)
	assert.Equal(t, 2, ai.calls)
}

func TestAnalyzerThrottledServesStale(t *testing.T) {
	ai := &scriptedAI{responses: []func() (domain.AlertAnalysis, error){
		okAnalysis("flooding"),
		aiError(domain.KindRateLimited),
	}}
	a, fc := newTestAnalyzer(ai)

	a.Analyze(context.Background(), domain.Forecast{}, nil)
	fc.Advance(time.Hour)
	stale := a.Analyze(context.Background(), domain.Forecast{}, nil)

	require.NotNil(t, stale)
	assert.Equal(t, "flooding", stale.PrimaryThreat)
}

func TestAnalyzerThrottledWithEmptyCacheReturnsNil(t *testing.T) {
	ai := &scriptedAI{responses: []func() (domain.AlertAnalysis, error){aiError(domain.KindRateLimited)}}
	a, _ := newTestAnalyzer(ai)

	assert.Nil(t, a.Analyze(context.Background(), domain.Forecast{}, nil))
}

func TestAnalyzerHardFailureReturnsNil(t *testing.T) {
	ai := &scriptedAI{responses: []func() (domain.AlertAnalysis, error){
		okAnalysis("flooding"),
		aiError(domain.KindUnavailable),
	}}
	a, fc := newTestAnalyzer(ai)

	a.Analyze(context.Background(), domain.Forecast{}, nil)
	fc.Advance(time.Hour)

	// Stale data is reserved for throttling; hard failures fall through so
	// the deterministic engine takes over.
	assert.Nil(t, a.Analyze(context.Background(), domain.Forecast{}, nil))
}
