// Package httpapi exposes the submission pipeline, durable queue, and alert
// engine over REST.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/rescuehq-core/internal/alert"
	"github.com/couchcryptid/rescuehq-core/internal/connectivity"
	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/queue"
	"github.com/couchcryptid/rescuehq-core/internal/submit"
)

// Handler carries the service dependencies for the REST surface.
type Handler struct {
	pipeline *submit.Pipeline
	syncer   *submit.Syncer
	queue    *queue.Queue
	alerts   *alert.Orchestrator
	monitor  *connectivity.Monitor
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler wires the REST handlers.
func NewHandler(pipeline *submit.Pipeline, syncer *submit.Syncer, q *queue.Queue, alerts *alert.Orchestrator, monitor *connectivity.Monitor, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		syncer:   syncer,
		queue:    q,
		alerts:   alerts,
		monitor:  monitor,
		logger:   logger,
		validate: validator.New(),
	}
}

// submitIncident accepts a report and answers with what became of it:
// 201 delivered, 202 parked in the queue, 504 delivery timed out,
// 400 rejected, 502 dispatch store trouble.
func (h *Handler) submitIncident(c *gin.Context) {
	var input SubmitIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("bad submission body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude must be provided together"})
		return
	}

	report := domain.IncidentReport{
		Name:        input.Name,
		Phone:       input.Phone,
		Type:        domain.Category(input.Type),
		Description: input.Description,
		Address:     input.Address,
	}
	if input.Latitude != nil {
		report.Location = &domain.Geo{Latitude: *input.Latitude, Longitude: *input.Longitude}
	}

	var image *submit.Image
	if input.Image != nil {
		image = &submit.Image{
			Name:        input.Image.Name,
			Data:        input.Image.Data,
			ContentType: input.Image.ContentType,
		}
	}

	locationMissing := report.Location == nil

	out := h.pipeline.Submit(c.Request.Context(), report, image)
	switch out.Disposition {
	case submit.Delivered:
		c.JSON(http.StatusCreated, SubmitDeliveredResponse{
			ID:               out.IncidentID,
			NotificationSent: out.NotificationSent,
			LocationMissing:  locationMissing,
		})
	case submit.Queued:
		c.JSON(http.StatusAccepted, SubmitQueuedResponse{
			QueuedSubmission: *out.QueuedRecord,
			LocationMissing:  locationMissing,
		})
	default:
		h.failSubmission(c, out.Err)
	}
}

func (h *Handler) failSubmission(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindTimeout:
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "delivery timed out; the report may still arrive"})
	case domain.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("submission failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "dispatch store error"})
	}
}

// getAlerts returns the current alert snapshot. 503 until the first refresh
// cycle completes.
func (h *Handler) getAlerts(c *gin.Context) {
	if !h.alerts.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alerts not ready"})
		return
	}
	c.JSON(http.StatusOK, h.alerts.Current())
}

func (h *Handler) listQueue(c *gin.Context) {
	items, err := h.queue.List()
	if err != nil {
		h.logger.Error("queue list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue unavailable"})
		return
	}
	if items == nil {
		items = []domain.QueuedSubmission{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) syncQueue(c *gin.Context) {
	res := h.syncer.Drain(c.Request.Context())
	c.JSON(http.StatusOK, SyncResponse{Synced: res.Synced, Failed: res.Failed})
}

func (h *Handler) clearQueue(c *gin.Context) {
	if err := h.queue.Clear(); err != nil {
		h.logger.Error("queue clear failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue unavailable"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyCheck gates on the alert engine having produced a snapshot and the
// queue answering. Connectivity to the dispatch store is reported but does
// not fail readiness: the service is useful offline.
func (h *Handler) readyCheck(c *gin.Context) {
	if _, err := h.queue.Depth(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "queue unavailable"})
		return
	}
	if !h.alerts.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "alerts warming up"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "online": h.monitor.Online()})
}
