package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// Prober feeds the Monitor by pinging a health endpoint on an interval.
// Any 2xx-4xx response counts as reachable; transport errors and 5xx do not.
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
	monitor  *Monitor
	logger   *slog.Logger
	clock    clockwork.Clock
}

// NewProber builds a Prober against the given health URL.
func NewProber(url string, interval time.Duration, monitor *Monitor, logger *slog.Logger) *Prober {
	return &Prober{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		monitor:  monitor,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
}

// Run probes until ctx is cancelled. The first probe fires immediately.
func (p *Prober) Run(ctx context.Context) {
	p.observe(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.observe(ctx)
		}
	}
}

func (p *Prober) observe(ctx context.Context) {
	online := p.probe(ctx)
	was := p.monitor.Online()
	p.monitor.Set(online)
	if online != was {
		p.logger.Info("connectivity changed", "online", online)
	}
}

func (p *Prober) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}
