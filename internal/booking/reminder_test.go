package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showza/showza-server/internal/model"
)

func TestReminderSweepMailsEachHolderIndependently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A show entering the reminder window, held by two users.
	f.store.shows["soon"] = model.Show{
		ID:           "soon",
		MovieID:      42,
		ShowDateTime: f.now.Add(8*time.Hour - 5*time.Minute),
		PriceCents:   1000,
	}
	_, err := f.svc.Create(ctx, "u1", CreateInput{ShowID: "soon", Seats: []string{"A1"}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "u2", CreateInput{ShowID: "soon", Seats: []string{"B1"}})
	require.NoError(t, err)

	// One recipient's relay rejects; the other send must still happen.
	f.mailer.failFor = map[string]bool{"omar@example.com": true}

	sent, failed, err := f.svc.RunReminderSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "maya@example.com", f.mailer.sent[0].To)
}

func TestReminderSweepIgnoresShowsOutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.shows["later"] = model.Show{
		ID:           "later",
		MovieID:      42,
		ShowDateTime: f.now.Add(9 * time.Hour),
		PriceCents:   1000,
	}
	f.store.shows["past-window"] = model.Show{
		ID:           "past-window",
		MovieID:      42,
		ShowDateTime: f.now.Add(8*time.Hour - 30*time.Minute),
		PriceCents:   1000,
	}
	_, err := f.svc.Create(ctx, "u1", CreateInput{ShowID: "later", Seats: []string{"A1"}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "u2", CreateInput{ShowID: "past-window", Seats: []string{"A1"}})
	require.NoError(t, err)

	sent, failed, err := f.svc.RunReminderSweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, failed)
	assert.Empty(t, f.mailer.sent)
}

func TestHandleReminderJobSchedulesNextOccurrence(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.HandleReminderJob(context.Background(), nil))

	require.Len(t, f.jobs.jobs, 1)
	job := f.jobs.jobs[0]
	assert.Equal(t, KindReminderSweep, job.Kind)
	assert.Equal(t, f.now.Add(8*time.Hour), job.RunAt)

	// Seeding the same occurrence again dedupes on the idempotency key.
	require.NoError(t, f.svc.ScheduleNextReminderSweep(context.Background(), f.now.Add(8*time.Hour)))
	assert.Len(t, f.jobs.jobs, 1)
}
