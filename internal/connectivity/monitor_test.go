package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

func newTestMonitor() *Monitor {
	return NewMonitor(observability.NewMetricsForTesting())
}

func TestMonitorStartsOnline(t *testing.T) {
	m := newTestMonitor()
	assert.True(t, m.Online())
}

func TestMonitorTransitions(t *testing.T) {
	m := newTestMonitor()

	m.Set(false)
	assert.False(t, m.Online())

	m.Set(true)
	assert.True(t, m.Online())
}

func TestMonitorSubscribeNotifiesOnTransition(t *testing.T) {
	m := newTestMonitor()
	ch := m.Subscribe()

	m.Set(false)
	select {
	case v := <-ch:
		assert.False(t, v)
	case <-time.After(time.Second):
		t.Fatal("no notification for offline transition")
	}

	m.Set(true)
	select {
	case v := <-ch:
		assert.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("no notification for online transition")
	}
}

func TestMonitorSlowConsumerReadsLatestTransition(t *testing.T) {
	m := newTestMonitor()
	ch := m.Subscribe()

	// Neither transition is consumed before the next one lands; the buffer
	// must end up holding the online edge, not the stale offline one.
	m.Set(false)
	m.Set(true)

	select {
	case v := <-ch:
		assert.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("no notification pending")
	}

	select {
	case v := <-ch:
		t.Fatalf("unexpected second notification %v", v)
	default:
	}
}

func TestMonitorRepeatedObservationsAreSilent(t *testing.T) {
	m := newTestMonitor()
	ch := m.Subscribe()

	m.Set(true)
	m.Set(true)

	select {
	case <-ch:
		t.Fatal("notification for a non-transition")
	default:
	}
}

func TestProberMarksOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := newTestMonitor()
	p := NewProber(srv.URL, time.Minute, m, observability.NewLogger("error", "text"))

	p.observe(context.Background())
	assert.False(t, m.Online())
}

func TestProberMarksOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestMonitor()
	m.Set(false)

	p := NewProber(srv.URL, time.Minute, m, observability.NewLogger("error", "text"))
	p.observe(context.Background())

	require.True(t, m.Online())
}

func TestProberUnreachableHostIsOffline(t *testing.T) {
	m := newTestMonitor()
	p := NewProber("http://127.0.0.1:1", time.Minute, m, observability.NewLogger("error", "text"))

	p.observe(context.Background())
	assert.False(t, m.Online())
}
