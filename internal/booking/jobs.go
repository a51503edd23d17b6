package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Job kinds owned by the booking core.
const (
	// KindPaymentReconcile is the per-booking hold-window check, enqueued
	// once at creation with the booking id as idempotency key.
	KindPaymentReconcile = "payment.reconcile"
	// KindReminderSweep is the periodic show-reminder fan-out.  Each run
	// enqueues the next occurrence.
	KindReminderSweep = "reminder.sweep"
)

type reconcilePayload struct {
	BookingID string `json:"booking_id"`
}

// HandleReconcileJob is the scheduler handler for KindPaymentReconcile.
func (s *Service) HandleReconcileJob(ctx context.Context, payload []byte) error {
	var p reconcilePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode reconcile payload: %w", err)
	}
	return s.Reconcile(ctx, p.BookingID)
}

// HandleReminderJob is the scheduler handler for KindReminderSweep.  It runs
// one sweep and schedules the next occurrence; per-recipient mail failures
// are accounted inside the sweep and do not fail the job.
func (s *Service) HandleReminderJob(ctx context.Context, _ []byte) error {
	sent, failed, err := s.RunReminderSweep(ctx)
	if err != nil {
		return err
	}
	s.log.WithFields(map[string]interface{}{"sent": sent, "failed": failed}).
		Info("reminder sweep completed")
	return s.ScheduleNextReminderSweep(ctx, s.now().Add(s.cfg.ReminderEvery))
}

// ScheduleNextReminderSweep enqueues a sweep occurrence due at runAt.  The
// idempotency key includes the due time so re-enqueueing the same occurrence
// (startup seeding racing a completing job) is a no-op.
func (s *Service) ScheduleNextReminderSweep(ctx context.Context, runAt time.Time) error {
	key := fmt.Sprintf("%s@%d", KindReminderSweep, runAt.UTC().Unix())
	return s.jobs.Enqueue(ctx, KindReminderSweep, key, struct{}{}, runAt)
}
