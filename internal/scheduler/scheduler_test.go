package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showza/showza-server/internal/repository"
)

type memJobStore struct {
	jobs        map[string]*repository.JobRecord
	byIdemKey   map[string]string
	rescheduled map[string]time.Time
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		jobs:        make(map[string]*repository.JobRecord),
		byIdemKey:   make(map[string]string),
		rescheduled: make(map[string]time.Time),
	}
}

func (m *memJobStore) Enqueue(_ context.Context, j repository.JobRecord) error {
	if _, dup := m.byIdemKey[j.IdemKey]; dup {
		return nil
	}
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = 5
	}
	j.Status = "pending"
	m.jobs[j.ID] = &j
	m.byIdemKey[j.IdemKey] = j.ID
	return nil
}

func (m *memJobStore) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]repository.JobRecord, error) {
	var claimed []repository.JobRecord
	for _, j := range m.jobs {
		if len(claimed) == limit {
			break
		}
		if j.Status != "pending" || j.RunAt.After(now) {
			continue
		}
		j.RunAt = now.Add(lease)
		j.Attempts++
		claimed = append(claimed, *j)
	}
	return claimed, nil
}

func (m *memJobStore) MarkDone(_ context.Context, id string) error {
	m.jobs[id].Status = "done"
	return nil
}

func (m *memJobStore) Reschedule(_ context.Context, id string, runAt time.Time) error {
	m.jobs[id].RunAt = runAt
	m.rescheduled[id] = runAt
	return nil
}

func (m *memJobStore) MarkDead(_ context.Context, id string) error {
	m.jobs[id].Status = "dead"
	return nil
}

func newTestScheduler(store Store) *Scheduler {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(store, log)
}

func TestSchedulerRunsDueJob(t *testing.T) {
	store := newMemJobStore()
	s := newTestScheduler(store)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	var gotPayload []byte
	s.Register("work", func(_ context.Context, payload []byte) error {
		gotPayload = payload
		return nil
	})

	require.NoError(t, s.Enqueue(context.Background(), "work", "work-1",
		map[string]string{"k": "v"}, base.Add(-time.Second)))
	require.NoError(t, s.runOnce(context.Background()))

	assert.JSONEq(t, `{"k":"v"}`, string(gotPayload))
	jobID := store.byIdemKey["work-1"]
	assert.Equal(t, "done", store.jobs[jobID].Status)
}

func TestSchedulerLeavesFutureJobs(t *testing.T) {
	store := newMemJobStore()
	s := newTestScheduler(store)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	ran := false
	s.Register("work", func(context.Context, []byte) error { ran = true; return nil })

	require.NoError(t, s.Enqueue(context.Background(), "work", "later", nil, base.Add(time.Hour)))
	require.NoError(t, s.runOnce(context.Background()))

	assert.False(t, ran)
	jobID := store.byIdemKey["later"]
	assert.Equal(t, "pending", store.jobs[jobID].Status)
}

func TestSchedulerEnqueueDeduplicates(t *testing.T) {
	store := newMemJobStore()
	s := newTestScheduler(store)
	base := time.Now()

	require.NoError(t, s.Enqueue(context.Background(), "work", "same-key", nil, base))
	require.NoError(t, s.Enqueue(context.Background(), "work", "same-key", nil, base.Add(time.Hour)))
	assert.Len(t, store.jobs, 1)
}

func TestSchedulerRetriesThenParksFailingJob(t *testing.T) {
	store := newMemJobStore()
	s := newTestScheduler(store)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	attempts := 0
	s.Register("flaky", func(context.Context, []byte) error {
		attempts++
		return errors.New("boom")
	})

	require.NoError(t, s.Enqueue(context.Background(), "flaky", "flaky-1", nil, base.Add(-time.Second)))
	jobID := store.byIdemKey["flaky-1"]
	store.jobs[jobID].MaxAttempts = 3

	for i := 0; i < 3; i++ {
		require.NoError(t, s.runOnce(context.Background()))
		now = store.jobs[jobID].RunAt.Add(time.Second)
	}

	assert.Equal(t, 3, attempts)
	assert.Equal(t, "dead", store.jobs[jobID].Status)
	// The first two failures were rescheduled, the last parked the job.
	assert.NotEmpty(t, store.rescheduled[jobID])
}

func TestSchedulerParksJobWithoutHandler(t *testing.T) {
	store := newMemJobStore()
	s := newTestScheduler(store)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	require.NoError(t, s.Enqueue(context.Background(), "unknown", "u-1", nil, base.Add(-time.Second)))
	require.NoError(t, s.runOnce(context.Background()))

	jobID := store.byIdemKey["u-1"]
	assert.Equal(t, "dead", store.jobs[jobID].Status)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 30*time.Second, retryDelay(1))
	assert.Equal(t, time.Minute, retryDelay(2))
	assert.Equal(t, 2*time.Minute, retryDelay(3))
	assert.Equal(t, 10*time.Minute, retryDelay(20))
}
