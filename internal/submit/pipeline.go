// Package submit implements the incident submission pipeline: validate,
// enrich, deliver, and fall back to the durable queue when the dispatch
// store cannot be reached.
package submit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rescuehq-core/internal/connectivity"
	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
	"github.com/couchcryptid/rescuehq-core/internal/queue"
)

// Store is the dispatch store surface the pipeline needs.
type Store interface {
	Create(ctx context.Context, report domain.IncidentReport) (string, error)
	UploadImage(ctx context.Context, name string, data []byte, contentType string) (string, error)
	MarkNotified(ctx context.Context, id string) error
}

// Notifier fans a delivered incident out to responders.
type Notifier interface {
	NotifyIncident(ctx context.Context, id string, report domain.IncidentReport) (bool, error)
}

// Image is an optional photo attached to a report.
type Image struct {
	Name        string
	Data        []byte
	ContentType string
}

// Disposition says what happened to a submission.
type Disposition string

const (
	Delivered Disposition = "delivered"
	Queued    Disposition = "queued"
	Failed    Disposition = "failed"
)

// Outcome is the result of one submission attempt.
type Outcome struct {
	Disposition      Disposition
	IncidentID       string
	QueuedRecord     *domain.QueuedSubmission
	NotificationSent bool
	Err              error
}

// Pipeline delivers reports to the dispatch store with offline fallback.
type Pipeline struct {
	store    Store
	queue    *queue.Queue
	monitor  *connectivity.Monitor
	geocoder domain.Geocoder // nil when geocoding is disabled
	notifier Notifier        // nil when SMS is disabled
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
	clock    clockwork.Clock
}

// NewPipeline wires the submission pipeline. geocoder and notifier may be
// nil; the corresponding enrichment is then skipped.
func NewPipeline(store Store, q *queue.Queue, monitor *connectivity.Monitor, geocoder domain.Geocoder, notifier Notifier, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		queue:    q,
		monitor:  monitor,
		geocoder: geocoder,
		notifier: notifier,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
}

// Submit runs one report through the pipeline.
//
// Offline short-circuits straight to the queue without a delivery attempt.
// A delivery racing past the timeout surfaces as Failed without queueing:
// the attempt may still land, and queueing a copy would double-deliver.
// Retryable delivery errors queue; everything else fails.
func (p *Pipeline) Submit(ctx context.Context, report domain.IncidentReport, image *Image) Outcome {
	if !report.Type.Valid() {
		err := domain.Classify(domain.KindValidation, fmt.Errorf("unknown category %q", report.Type))
		p.metrics.Submissions.WithLabelValues("invalid").Inc()
		return Outcome{Disposition: Failed, Err: err}
	}

	if !p.monitor.Online() {
		return p.park(report)
	}

	p.enrichAddress(ctx, &report)

	start := p.clock.Now()
	id, err := p.deliver(ctx, report, image)
	if err == nil {
		p.metrics.Submissions.WithLabelValues("delivered").Inc()
		p.metrics.DeliveryDuration.Observe(p.clock.Since(start).Seconds())
		p.logger.Info("incident delivered", "incident", id, "category", report.Type)
		return Outcome{
			Disposition:      Delivered,
			IncidentID:       id,
			NotificationSent: p.notify(ctx, id, report),
		}
	}

	switch {
	case domain.KindOf(err) == domain.KindTimeout:
		p.metrics.Submissions.WithLabelValues("timeout").Inc()
		p.logger.Warn("delivery timed out", "category", report.Type)
		return Outcome{Disposition: Failed, Err: err}
	case domain.IsRetryable(err):
		p.monitor.Set(false)
		p.logger.Warn("dispatch store unavailable, queueing", "category", report.Type, "error", err)
		return p.park(report)
	case domain.KindOf(err) == domain.KindValidation:
		p.metrics.Submissions.WithLabelValues("invalid").Inc()
		return Outcome{Disposition: Failed, Err: err}
	default:
		p.metrics.Submissions.WithLabelValues("failed").Inc()
		return Outcome{Disposition: Failed, Err: err}
	}
}

type deliverResult struct {
	id  string
	err error
}

// deliver uploads the image (if any) and creates the incident, racing the
// whole attempt against the submission timeout.
func (p *Pipeline) deliver(ctx context.Context, report domain.IncidentReport, image *Image) (string, error) {
	done := make(chan deliverResult, 1)

	go func() {
		if image != nil {
			url, err := p.store.UploadImage(ctx, image.Name, image.Data, image.ContentType)
			if err != nil {
				done <- deliverResult{err: fmt.Errorf("upload image: %w", err)}
				return
			}
			report.ImageURL = url
		}
		id, err := p.store.Create(ctx, report)
		done <- deliverResult{id: id, err: err}
	}()

	select {
	case r := <-done:
		return r.id, r.err
	case <-p.clock.After(p.timeout):
		go p.logLateSettlement(done)
		return "", domain.Classify(domain.KindTimeout, fmt.Errorf("delivery exceeded %s", p.timeout))
	case <-ctx.Done():
		go p.logLateSettlement(done)
		return "", domain.Classify(domain.KindTimeout, ctx.Err())
	}
}

// logLateSettlement reports how an abandoned delivery attempt eventually
// settled. The attempt may still land after the caller has been told it
// timed out, and that outcome matters for manual reconciliation.
func (p *Pipeline) logLateSettlement(done <-chan deliverResult) {
	r := <-done
	if r.err != nil {
		p.logger.Warn("abandoned delivery settled with error", "error", r.err)
		return
	}
	p.logger.Info("abandoned delivery settled, incident stored", "incident", r.id)
}

func (p *Pipeline) park(report domain.IncidentReport) Outcome {
	sub, err := p.queue.Enqueue(report)
	if err != nil {
		p.metrics.Submissions.WithLabelValues("failed").Inc()
		return Outcome{Disposition: Failed, Err: fmt.Errorf("queue report: %w", err)}
	}
	p.metrics.Submissions.WithLabelValues("queued").Inc()
	p.logger.Info("incident queued", "queued_id", sub.ID, "category", report.Type)
	return Outcome{Disposition: Queued, QueuedRecord: &sub}
}

// enrichAddress resolves coordinates to an address when the reporter gave a
// position but no address. Best effort with a short budget; a report is
// never delayed or failed over geocoding.
func (p *Pipeline) enrichAddress(ctx context.Context, report *domain.IncidentReport) {
	if p.geocoder == nil || !report.HasLocation() || report.Address != "" {
		return
	}

	geoCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	address, err := p.geocoder.ReverseGeocode(geoCtx, report.Location.Latitude, report.Location.Longitude)
	if err != nil {
		p.logger.Debug("reverse geocode failed", "error", err)
		return
	}
	report.Address = address
}

// notify fans the delivered incident out to admins and records the outcome
// on the stored record. Both steps are best effort; the delivery already
// succeeded.
func (p *Pipeline) notify(ctx context.Context, id string, report domain.IncidentReport) bool {
	if p.notifier == nil {
		return false
	}
	sent, err := p.notifier.NotifyIncident(ctx, id, report)
	if err != nil {
		p.logger.Warn("admin notification failed", "incident", id, "error", err)
	}
	if sent {
		if err := p.store.MarkNotified(ctx, id); err != nil {
			p.logger.Warn("notification flag update failed", "incident", id, "error", err)
		}
	}
	return sent
}
