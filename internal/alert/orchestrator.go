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

// WeatherSource provides the daily forecast.
type WeatherSource interface {
	Fetch(ctx context.Context) (domain.Forecast, error)
}

// IncidentLister reports recent stored incidents so the model can weigh
// what is already happening on the ground.
type IncidentLister interface {
	Recent(ctx context.Context, since time.Time) ([]domain.IncidentReport, error)
}

// Publisher fans a completed alert cycle out to downstream consumers.
type Publisher interface {
	PublishCycle(ctx context.Context, snapshot Snapshot) error
}

// recentIncidentWindow is how far back ground-truth incident counts feed the
// model prompt.
const recentIncidentWindow = 24 * time.Hour

// Snapshot is the alert state produced by one refresh cycle.
type Snapshot struct {
	UpdatedAt time.Time             `json:"updatedAt"`
	Engine    string                `json:"engine"` // "ai" or "threshold"
	Alerts    []domain.AlertRecord  `json:"alerts"`
	Analysis  *domain.AlertAnalysis `json:"analysis,omitempty"` // set only when Engine is "ai"
}

// Orchestrator runs the refresh cycle and holds the current snapshot.
type Orchestrator struct {
	weather   WeatherSource
	analyzer  *Analyzer // nil when AI is disabled
	incidents IncidentLister
	publisher Publisher // nil when fan-out is disabled
	interval  time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger
	clock     clockwork.Clock

	mu      sync.RWMutex
	current Snapshot
	ready   bool
}

// NewOrchestrator wires the alert engine. analyzer, incidents, and publisher
// may each be nil; the corresponding behavior is then skipped.
func NewOrchestrator(weather WeatherSource, analyzer *Analyzer, incidents IncidentLister, publisher Publisher, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		weather:   weather,
		analyzer:  analyzer,
		incidents: incidents,
		publisher: publisher,
		interval:  interval,
		metrics:   metrics,
		logger:    logger,
		clock:     clockwork.NewRealClock(),
	}
}

// Current returns the latest snapshot. Before the first successful refresh
// the snapshot is zero-valued and Ready reports false.
func (o *Orchestrator) Current() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// Ready reports whether at least one refresh has completed.
func (o *Orchestrator) Ready() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ready
}

// Refresh runs one analysis cycle. The AI engine wins only when it produces
// an analysis with at least one alert; an empty or missing analysis hands the
// same forecast to the threshold engine. A forecast fetch failure keeps the
// previous snapshot live.
func (o *Orchestrator) Refresh(ctx context.Context) {
	forecast, err := o.weather.Fetch(ctx)
	if err != nil {
		o.metrics.AlertCycles.WithLabelValues("none", "error").Inc()
		o.logger.Error("forecast fetch failed, keeping previous alerts", "error", err)
		return
	}

	snapshot := Snapshot{UpdatedAt: o.clock.Now().UTC()}

	if analysis := o.analyze(ctx, forecast); analysis != nil && len(analysis.Alerts) > 0 {
		snapshot.Engine = "ai"
		snapshot.Analysis = analysis
		snapshot.Alerts = analysis.Alerts
	} else {
		snapshot.Engine = "threshold"
		snapshot.Alerts = domain.EvaluateForecast(forecast)
	}

	o.mu.Lock()
	o.current = snapshot
	o.ready = true
	o.mu.Unlock()

	o.metrics.AlertCycles.WithLabelValues(snapshot.Engine, "success").Inc()
	o.metrics.ActiveAlerts.Set(float64(len(snapshot.Alerts)))
	o.logger.Info("alerts refreshed", "engine", snapshot.Engine, "alerts", len(snapshot.Alerts))

	if o.publisher != nil {
		if err := o.publisher.PublishCycle(ctx, snapshot); err != nil {
			o.logger.Warn("alert fan-out failed", "error", err)
		} else {
			o.metrics.AlertsFanout.Inc()
		}
	}
}

func (o *Orchestrator) analyze(ctx context.Context, forecast domain.Forecast) *domain.AlertAnalysis {
	if o.analyzer == nil {
		return nil
	}
	return o.analyzer.Analyze(ctx, forecast, o.recentCounts(ctx))
}

// recentCounts tallies stored incidents by category over the lookback
// window. Counting failures degrade to an uninformed prompt, never a
// skipped cycle.
func (o *Orchestrator) recentCounts(ctx context.Context) map[domain.Category]int {
	if o.incidents == nil {
		return nil
	}

	since := o.clock.Now().Add(-recentIncidentWindow)
	reports, err := o.incidents.Recent(ctx, since)
	if err != nil {
		o.logger.Debug("recent incident lookup failed", "error", err)
		return nil
	}

	counts := make(map[domain.Category]int, len(reports))
	for _, r := range reports {
		counts[r.Type]++
	}
	return counts
}

// Run refreshes immediately and then on every interval until ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	o.Refresh(ctx)

	ticker := o.clock.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			o.Refresh(ctx)
		}
	}
}
