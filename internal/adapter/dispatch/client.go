// Package dispatch talks to the external incident dispatch store and its
// companion blob store. Failures are classified so the submission pipeline
// can decide between surfacing, queueing, and timing out.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
)

// Client is an HTTP client for the dispatch store REST API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	blobURL    string
	logger     *slog.Logger
}

// NewClient creates a dispatch store client. blobURL may be empty when no
// blob store is deployed; image uploads then fail as unavailable.
func NewClient(baseURL, blobURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		blobURL: blobURL,
		logger:  logger,
	}
}

// Create stores a new incident and returns its assigned id. The store stamps
// the creation time and the initial pending status.
func (c *Client) Create(ctx context.Context, report domain.IncidentReport) (string, error) {
	report.Status = domain.StatusPending

	var created createResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/incidents", report, &created); err != nil {
		return "", fmt.Errorf("create incident: %w", err)
	}
	return created.ID, nil
}

// Recent lists incidents created at or after the given time.
func (c *Client) Recent(ctx context.Context, since time.Time) ([]domain.IncidentReport, error) {
	u := c.baseURL + "/incidents?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))

	var reports []domain.IncidentReport
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &reports); err != nil {
		return nil, fmt.Errorf("list recent incidents: %w", err)
	}
	return reports, nil
}

// UpdateStatus moves a stored incident to a new lifecycle state.
func (c *Client) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	body := statusUpdate{Status: status}
	if err := c.doJSON(ctx, http.MethodPatch, c.baseURL+"/incidents/"+id, body, nil); err != nil {
		return fmt.Errorf("update incident %s: %w", id, err)
	}
	return nil
}

// MarkNotified flags a stored incident as having had its admin notification
// sent.
func (c *Client) MarkNotified(ctx context.Context, id string) error {
	body := notifiedUpdate{NotificationSent: true}
	if err := c.doJSON(ctx, http.MethodPatch, c.baseURL+"/incidents/"+id, body, nil); err != nil {
		return fmt.Errorf("mark incident %s notified: %w", id, err)
	}
	return nil
}

// Delete removes a stored incident.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.baseURL+"/incidents/"+id, nil, nil); err != nil {
		return fmt.Errorf("delete incident %s: %w", id, err)
	}
	return nil
}

// UploadImage stores an attached photo in the blob store and returns its
// public URL.
func (c *Client) UploadImage(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if c.blobURL == "" {
		return "", domain.Classify(domain.KindUnavailable, fmt.Errorf("no blob store configured"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.blobURL+"/uploads/"+name, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.Classify(classifyTransport(err), fmt.Errorf("upload image: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp)
	}

	var uploaded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return uploaded.URL, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Classify(classifyTransport(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// statusError classifies a non-2xx response. Bad requests are the caller's
// fault and will not improve on retry; throttling and server trouble will,
// so both classify as unavailable and the report parks in the queue.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("dispatch store: status %d: %s", resp.StatusCode, body)

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return domain.Classify(domain.KindValidation, err)
	case resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500:
		return domain.Classify(domain.KindUnavailable, err)
	default:
		return domain.Classify(domain.KindUnknown, err)
	}
}

// classifyTransport maps transport-level failures. Deadline expiry means a
// timeout fired with the attempt possibly still in flight; everything else is
// the network being away.
func classifyTransport(err error) domain.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.KindTimeout
	}
	return domain.KindUnavailable
}

// Dispatch store response types.

type createResponse struct {
	ID string `json:"id"`
}

type statusUpdate struct {
	Status domain.Status `json:"status"`
}

type notifiedUpdate struct {
	NotificationSent bool `json:"notificationSent"`
}

type uploadResponse struct {
	URL string `json:"url"`
}
