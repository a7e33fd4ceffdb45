// Package connectivity tracks whether the dispatch store is reachable.
//
// The Monitor is a passive observer: it never blocks a submission. Callers
// consult it for a fast offline short-circuit, and the sync engine subscribes
// to it to drain the queue the moment connectivity returns. It starts online
// so a fresh process with no probe signal yet attempts real deliveries.
package connectivity

import (
	"sync"

	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

// Monitor holds the current online/offline view and fans out transitions to
// subscribers.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool

	metrics *observability.Metrics
}

// NewMonitor returns a Monitor that starts online.
func NewMonitor(metrics *observability.Metrics) *Monitor {
	m := &Monitor{online: true, metrics: metrics}
	metrics.ConnectivityOnline.Set(1)
	return m
}

// Online reports the current connectivity view.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records a new connectivity observation. Subscribers are notified only
// on transitions; repeated observations of the same state are no-ops.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if online == m.online {
		return
	}
	m.online = online

	if online {
		m.metrics.ConnectivityOnline.Set(1)
	} else {
		m.metrics.ConnectivityOnline.Set(0)
	}

	for _, ch := range m.subs {
		// Displace any unconsumed older transition so the buffer always
		// holds the newest state.
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
}

// Subscribe returns a channel whose buffer holds the most recent unconsumed
// transition. A slow consumer misses intermediate flaps but never reads a
// stale state after a newer transition has been recorded.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 1)
	m.subs = append(m.subs, ch)
	return ch
}
