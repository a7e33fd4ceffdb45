// Package queue persists submissions that could not be delivered.
//
// The queue is backed by an embedded BadgerDB so parked reports survive a
// process restart. All resident records live under a single key as one JSON
// array, rewritten wholesale on every mutation; at the expected queue sizes
// (tens of records) this keeps the on-disk shape trivially inspectable.
package queue

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

var queueKey = []byte("pending-submissions")

// Queue is a durable FIFO of submissions awaiting delivery.
type Queue struct {
	db      *badger.DB
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   clockwork.Clock

	// writeMu serializes mutations. Every writer rewrites the same key, so
	// concurrent update transactions would abort each other with ErrConflict.
	writeMu sync.Mutex
}

// Open opens (or creates) the durable queue at the given directory.
func Open(path string, metrics *observability.Metrics, logger *slog.Logger) (*Queue, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(&badgerLogger{logger: logger}).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open queue at %s: %w", path, err)
	}

	q := &Queue{db: db, metrics: metrics, logger: logger, clock: clockwork.NewRealClock()}
	items, _ := q.List()
	metrics.QueueDepth.Set(float64(len(items)))
	return q, nil
}

// OpenInMemory opens a queue with no disk persistence, for tests.
func OpenInMemory(metrics *observability.Metrics) (*Queue, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory queue: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Queue{db: db, metrics: metrics, logger: logger, clock: clockwork.NewRealClock()}, nil
}

// Close releases the underlying database.
func (q *Queue) Close() error { return q.db.Close() }

// Enqueue parks a report and returns the stored record. IDs embed the
// enqueue time so records are distinguishable and roughly ordered even
// across restarts.
func (q *Queue) Enqueue(report domain.IncidentReport) (domain.QueuedSubmission, error) {
	now := q.clock.Now()
	sub := domain.QueuedSubmission{
		ID:             fmt.Sprintf("offline-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		IncidentReport: report,
		QueuedAt:       now.UTC(),
		Synced:         false,
	}

	err := q.mutate(func(items []domain.QueuedSubmission) []domain.QueuedSubmission {
		return append(items, sub)
	})
	if err != nil {
		return domain.QueuedSubmission{}, err
	}
	return sub, nil
}

// List returns all resident submissions in enqueue order. An unreadable or
// corrupt value degrades to an empty queue: queue inspection must keep
// working when the store does not, so the failure is reported through the
// log and the error counter instead.
func (q *Queue) List() ([]domain.QueuedSubmission, error) {
	var items []domain.QueuedSubmission

	err := q.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(queueKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &items)
		})
	})
	if err != nil {
		q.metrics.QueueErrors.Inc()
		q.logger.Error("queue read failed, listing as empty", "error", err)
		return nil, nil
	}
	return items, nil
}

// Remove deletes the record with the given id. Removing an absent id is not
// an error; the sync engine may race a manual clear.
func (q *Queue) Remove(id string) error {
	return q.mutate(func(items []domain.QueuedSubmission) []domain.QueuedSubmission {
		kept := items[:0]
		for _, it := range items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		return kept
	})
}

// Clear discards every resident record.
func (q *Queue) Clear() error {
	return q.mutate(func([]domain.QueuedSubmission) []domain.QueuedSubmission {
		return nil
	})
}

// Depth returns the number of resident records.
func (q *Queue) Depth() (int, error) {
	items, err := q.List()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (q *Queue) mutate(fn func([]domain.QueuedSubmission) []domain.QueuedSubmission) error {
	q.writeMu.Lock()
	defer q.writeMu.Unlock()

	err := q.db.Update(func(txn *badger.Txn) error {
		var items []domain.QueuedSubmission

		item, err := txn.Get(queueKey)
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err == nil {
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &items)
			}); verr != nil {
				// A corrupt value must not block new enqueues; the rewrite
				// below replaces it with a clean state.
				q.metrics.QueueErrors.Inc()
				q.logger.Error("queue value corrupt, resetting", "error", verr)
				items = nil
			}
		}

		items = fn(items)
		if len(items) == 0 {
			if derr := txn.Delete(queueKey); derr != nil && derr != badger.ErrKeyNotFound {
				return derr
			}
			q.metrics.QueueDepth.Set(0)
			return nil
		}

		buf, merr := json.Marshal(items)
		if merr != nil {
			return merr
		}
		if serr := txn.Set(queueKey, buf); serr != nil {
			return serr
		}
		q.metrics.QueueDepth.Set(float64(len(items)))
		return nil
	})
	if err != nil {
		q.metrics.QueueErrors.Inc()
		return fmt.Errorf("update queue: %w", err)
	}
	return nil
}

// badgerLogger adapts slog to BadgerDB's logger interface, demoting Badger's
// chatty info output to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
