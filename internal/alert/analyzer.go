// Package alert derives weather risk alerts on a fixed cadence. The AI
// engine is preferred when configured; the deterministic threshold engine is
// the fallback. Exactly one engine's output is live at any time.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

// AIClient is the model surface the analyzer needs.
type AIClient interface {
	Analyze(ctx context.Context, forecast domain.Forecast, recentIncidents map[domain.Category]int) (domain.AlertAnalysis, error)
}

// Analyzer caches AI analyses for a TTL and absorbs model throttling by
// serving stale data. Its contract never raises: a nil result means no
// usable analysis exists and the caller should fall back.
type Analyzer struct {
	client  AIClient
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   clockwork.Clock

	mu        sync.Mutex
	cached    *domain.AlertAnalysis
	fetchedAt time.Time
}

// NewAnalyzer creates the AI analysis cache.
func NewAnalyzer(client AIClient, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
		clock:   clockwork.NewRealClock(),
	}
}

// Analyze returns the freshest usable analysis. A fresh cache entry is
// served without a model call. On a miss the model is consulted and the
// cache overwritten wholesale. A throttled model serves the stale entry
// rather than nothing; any other failure returns nil.
func (a *Analyzer) Analyze(ctx context.Context, forecast domain.Forecast, recentIncidents map[domain.Category]int) *domain.AlertAnalysis {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if a.cached != nil && now.Sub(a.fetchedAt) < a.ttl {
		a.metrics.AICache.WithLabelValues("hit").Inc()
		return a.cached
	}
	a.metrics.AICache.WithLabelValues("miss").Inc()

	analysis, err := a.client.Analyze(ctx, forecast, recentIncidents)
	if err == nil {
		a.metrics.AIRequests.WithLabelValues("success").Inc()
		a.cached = &analysis
		a.fetchedAt = now
		return a.cached
	}

	if domain.KindOf(err) == domain.KindRateLimited {
		a.metrics.AIRequests.WithLabelValues("rate_limited").Inc()
		if a.cached != nil {
			a.metrics.AICache.WithLabelValues("stale").Inc()
			a.logger.Warn("model throttled, serving stale analysis", "age", now.Sub(a.fetchedAt))
			return a.cached
		}
		return nil
	}

	a.metrics.AIRequests.WithLabelValues("error").Inc()
	a.logger.Warn("ai analysis failed", "error", err)
	return nil
}
