package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rescuehq-core/internal/connectivity"
	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
	"github.com/couchcryptid/rescuehq-core/internal/queue"
)

type syncFixture struct {
	syncer  *Syncer
	store   *fakeStore
	queue   *queue.Queue
	monitor *connectivity.Monitor
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	logger := observability.NewLogger("error", "text")

	q, err := queue.OpenInMemory(metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	store := &fakeStore{}
	monitor := connectivity.NewMonitor(metrics)

	return &syncFixture{
		syncer:  NewSyncer(q, store, monitor, time.Minute, metrics, logger),
		store:   store,
		queue:   q,
		monitor: monitor,
	}
}

func TestDrainEmptyQueue(t *testing.T) {
	f := newSyncFixture(t)
	res := f.syncer.Drain(context.Background())
	assert.Equal(t, DrainResult{}, res)
}

func TestDrainDeliversInOrder(t *testing.T) {
	f := newSyncFixture(t)

	first := validReport()
	first.Name = "first"
	second := validReport()
	second.Name = "second"

	_, err := f.queue.Enqueue(first)
	require.NoError(t, err)
	_, err = f.queue.Enqueue(second)
	require.NoError(t, err)

	res := f.syncer.Drain(context.Background())

	assert.Equal(t, DrainResult{Synced: 2}, res)
	require.Len(t, f.store.created, 2)
	assert.Equal(t, "first", f.store.created[0].Name)
	assert.Equal(t, "second", f.store.created[1].Name)

	depth, err := f.queue.Depth()
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestDrainKeepsFailedRecords(t *testing.T) {
	f := newSyncFixture(t)
	f.store.createErr = errors.New("boom")

	sub, err := f.queue.Enqueue(validReport())
	require.NoError(t, err)

	res := f.syncer.Drain(context.Background())

	assert.Equal(t, DrainResult{Failed: 1}, res)
	items, err := f.queue.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, sub.ID, items[0].ID)
}

func TestDrainRetryableFailureMarksOffline(t *testing.T) {
	f := newSyncFixture(t)
	f.store.createErr = domain.Classify(domain.KindUnavailable, errors.New("down"))

	_, err := f.queue.Enqueue(validReport())
	require.NoError(t, err)

	f.syncer.Drain(context.Background())
	assert.False(t, f.monitor.Online())
}

func TestRunDrainsOnReconnect(t *testing.T) {
	f := newSyncFixture(t)
	f.monitor.Set(false)

	_, err := f.queue.Enqueue(validReport())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.syncer.Run(ctx)

	// Give Run a moment to subscribe before flipping online.
	time.Sleep(50 * time.Millisecond)
	f.monitor.Set(true)

	require.Eventually(t, func() bool {
		depth, derr := f.queue.Depth()
		return derr == nil && depth == 0
	}, 2*time.Second, 10*time.Millisecond)
}
