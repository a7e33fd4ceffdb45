package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := OpenInMemory(observability.NewMetricsForTesting())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func sampleReport(name string) domain.IncidentReport {
	return domain.IncidentReport{
		Name:        name,
		Phone:       "+94771234567",
		Type:        domain.CategoryFlood,
		Description: "water rising fast",
		Location:    &domain.Geo{Latitude: 6.9271, Longitude: 79.8612},
	}
}

func TestEnqueueAssignsIDAndTimestamp(t *testing.T) {
	q := newTestQueue(t)
	q.clock = clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	sub, err := q.Enqueue(sampleReport("Amara"))
	require.NoError(t, err)

	assert.Regexp(t, `^offline-\d+-[0-9a-f]{8}$`, sub.ID)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), sub.QueuedAt)
	assert.False(t, sub.Synced)
	assert.Equal(t, "Amara", sub.Name)
}

func TestListPreservesEnqueueOrder(t *testing.T) {
	q := newTestQueue(t)

	first, err := q.Enqueue(sampleReport("first"))
	require.NoError(t, err)
	second, err := q.Enqueue(sampleReport("second"))
	require.NoError(t, err)

	items, err := q.List()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
}

func TestRemoveDeletesOnlyTarget(t *testing.T) {
	q := newTestQueue(t)

	keep, err := q.Enqueue(sampleReport("keep"))
	require.NoError(t, err)
	drop, err := q.Enqueue(sampleReport("drop"))
	require.NoError(t, err)

	require.NoError(t, q.Remove(drop.ID))

	items, err := q.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ID)
}

func TestRemoveAbsentIDIsNoop(t *testing.T) {
	q := newTestQueue(t)
	_, err := q.Enqueue(sampleReport("only"))
	require.NoError(t, err)

	require.NoError(t, q.Remove("offline-0-deadbeef"))

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestClearEmptiesQueue(t *testing.T) {
	q := newTestQueue(t)
	_, err := q.Enqueue(sampleReport("a"))
	require.NoError(t, err)
	_, err = q.Enqueue(sampleReport("b"))
	require.NoError(t, err)

	require.NoError(t, q.Clear())

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	metrics := observability.NewMetricsForTesting()
	logger := observability.NewLogger("error", "text")

	q, err := Open(dir, metrics, logger)
	require.NoError(t, err)

	sub, err := q.Enqueue(sampleReport("durable"))
	require.NoError(t, err)
	require.NoError(t, q.Close())

	reopened, err := Open(dir, observability.NewMetricsForTesting(), logger)
	require.NoError(t, err)
	defer reopened.Close()

	items, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, sub.ID, items[0].ID)
	assert.Equal(t, "durable", items[0].Name)
	assert.False(t, items[0].Synced)
}

func TestConcurrentEnqueueAndRemove(t *testing.T) {
	q := newTestQueue(t)

	seed, err := q.Enqueue(sampleReport("seed"))
	require.NoError(t, err)

	// Every writer rewrites the same key, so racing enqueues against a
	// remove must not surface transaction conflicts to either side.
	const writers = 50
	errs := make(chan error, writers+1)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Enqueue(sampleReport("racer"))
			errs <- err
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- q.Remove(seed.ID)
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Equal(t, writers, depth)
}

func TestListDegradesOnCorruptValue(t *testing.T) {
	q := newTestQueue(t)
	_, err := q.Enqueue(sampleReport("victim"))
	require.NoError(t, err)

	require.NoError(t, q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(queueKey, []byte("{not json"))
	}))

	items, err := q.List()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEnqueueReplacesCorruptValue(t *testing.T) {
	q := newTestQueue(t)

	require.NoError(t, q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(queueKey, []byte("{not json"))
	}))

	sub, err := q.Enqueue(sampleReport("fresh"))
	require.NoError(t, err)

	items, err := q.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, sub.ID, items[0].ID)
}

func TestEmptyQueueListsNothing(t *testing.T) {
	q := newTestQueue(t)

	items, err := q.List()
	require.NoError(t, err)
	assert.Empty(t, items)
}
