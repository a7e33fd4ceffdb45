// Package sms notifies admin responders of new incidents via Twilio.
// Delivery is best-effort: a failed SMS never fails the submission that
// triggered it.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

// categoryEmoji prefixes the SMS body so responders can triage from the
// notification preview alone.
var categoryEmoji = map[domain.Category]string{
	domain.CategoryFlood:     "🌊",
	domain.CategoryLandslide: "⛰️",
	domain.CategoryMedical:   "🏥",
	domain.CategoryTrapped:   "🆘",
	domain.CategoryOther:     "⚠️",
}

// Notifier sends incident alerts through the Twilio Messages API.
type Notifier struct {
	accountSID string
	authToken  string
	from       string
	admins     []string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewNotifier creates a Twilio SMS notifier.
func NewNotifier(accountSID, authToken, from string, admins []string, metrics *observability.Metrics, logger *slog.Logger) *Notifier {
	return &Notifier{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		admins:     admins,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: "https://api.twilio.com",
		metrics: metrics,
		logger:  logger,
	}
}

// NotifyIncident fans one incident out to every admin number. It reports
// success if at least one message was accepted; per-number failures are
// logged and counted but do not abort the rest of the fan-out.
func (n *Notifier) NotifyIncident(ctx context.Context, id string, report domain.IncidentReport) (bool, error) {
	body := buildMessage(id, report)

	var delivered int
	var lastErr error
	for _, to := range n.admins {
		if err := n.send(ctx, to, body); err != nil {
			n.metrics.SMSDeliveries.WithLabelValues("error").Inc()
			n.logger.Warn("sms delivery failed", "to", to, "incident", id, "error", err)
			lastErr = err
			continue
		}
		n.metrics.SMSDeliveries.WithLabelValues("sent").Inc()
		delivered++
	}

	if delivered == 0 && lastErr != nil {
		return false, fmt.Errorf("notify admins: %w", lastErr)
	}
	return delivered > 0, nil
}

func (n *Notifier) send(ctx context.Context, to, body string) error {
	form := url.Values{
		"To":   {to},
		"From": {n.from},
		"Body": {body},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.baseURL, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(n.accountSID, n.authToken)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var twilioErr errorResponse
		if json.Unmarshal(raw, &twilioErr) == nil && twilioErr.Message != "" {
			return fmt.Errorf("twilio: status %d: %s", resp.StatusCode, twilioErr.Message)
		}
		return fmt.Errorf("twilio: status %d: %s", resp.StatusCode, raw)
	}
	return nil
}

func buildMessage(id string, report domain.IncidentReport) string {
	emoji := categoryEmoji[report.Type]
	if emoji == "" {
		emoji = categoryEmoji[domain.CategoryOther]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 RescueHQ EMERGENCY %s\n", id)
	fmt.Fprintf(&b, "%s %s\n", emoji, strings.ToUpper(string(report.Type)))
	fmt.Fprintf(&b, "Reporter: %s (%s)\n", report.Name, report.Phone)
	if report.Description != "" {
		fmt.Fprintf(&b, "%s\n", report.Description)
	}
	switch {
	case report.Address != "":
		fmt.Fprintf(&b, "Location: %s", report.Address)
	case report.HasLocation():
		fmt.Fprintf(&b, "Location: %.5f, %.5f", report.Location.Latitude, report.Location.Longitude)
	default:
		b.WriteString("Location: not provided")
	}
	return b.String()
}

// Twilio API response types.

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
