package submit

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rescuehq-core/internal/connectivity"
	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
	"github.com/couchcryptid/rescuehq-core/internal/queue"
)

// Syncer replays queued submissions once the dispatch store is reachable
// again. It wakes on connectivity transitions and on a periodic safety-net
// tick in case a transition notification was missed.
type Syncer struct {
	queue    *queue.Queue
	store    Store
	monitor  *connectivity.Monitor
	interval time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
	clock    clockwork.Clock
}

// DrainResult summarizes one queue drain.
type DrainResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// NewSyncer creates the queue replay engine.
func NewSyncer(q *queue.Queue, store Store, monitor *connectivity.Monitor, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Syncer {
	return &Syncer{
		queue:    q,
		store:    store,
		monitor:  monitor,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
}

// Drain attempts delivery of every resident record, oldest first, working on
// a snapshot so records enqueued mid-drain wait for the next pass. Delivered
// records are removed; failed ones stay for the next drain.
func (s *Syncer) Drain(ctx context.Context) DrainResult {
	items, err := s.queue.List()
	if err != nil {
		s.logger.Error("queue read failed", "error", err)
		return DrainResult{}
	}
	if len(items) == 0 {
		return DrainResult{}
	}

	var res DrainResult
	for _, item := range items {
		if ctx.Err() != nil {
			res.Failed += len(items) - res.Synced - res.Failed
			break
		}

		id, err := s.store.Create(ctx, item.IncidentReport)
		if err != nil {
			res.Failed++
			s.metrics.SyncItems.WithLabelValues("failed").Inc()
			s.logger.Warn("replay failed", "queued_id", item.ID, "error", err)
			if domain.IsRetryable(err) {
				s.monitor.Set(false)
			}
			continue
		}

		if err := s.queue.Remove(item.ID); err != nil {
			s.logger.Error("queue remove failed", "queued_id", item.ID, "error", err)
		}
		res.Synced++
		s.metrics.SyncItems.WithLabelValues("synced").Inc()
		s.logger.Info("queued incident replayed", "queued_id", item.ID, "incident", id)
	}
	return res
}

// Run drains on every offline-to-online transition and on the safety-net
// interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	transitions := s.monitor.Subscribe()
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case online := <-transitions:
			if online {
				s.logger.Info("connectivity restored, draining queue")
				s.Drain(ctx)
			}
		case <-ticker.Chan():
			if s.monitor.Online() {
				s.Drain(ctx)
			}
		}
	}
}
