// Package scheduler runs durable delayed jobs off a persisted job store.
// Due-times live in the database, so a pending reconciliation or sweep
// survives process restarts; an in-memory timer would not.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/repository"
)

// HandlerFunc processes one job payload.  Handlers must be idempotent:
// a crash between handling and MarkDone makes the job run again after its
// lease expires.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Store is the durable job store contract, satisfied by repository.JobRepo.
type Store interface {
	Enqueue(ctx context.Context, j repository.JobRecord) error
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]repository.JobRecord, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, runAt time.Time) error
	MarkDead(ctx context.Context, id string) error
}

// Scheduler polls the store on a fixed tick, claims due jobs and dispatches
// them to registered handlers.  Failed jobs retry with exponential backoff
// until max_attempts, then are parked as dead.
type Scheduler struct {
	store    Store
	log      *logrus.Logger
	handlers map[string]HandlerFunc

	tick  time.Duration
	lease time.Duration
	batch int
	now   func() time.Time
}

// New constructs a Scheduler with a 1s poll tick and a 1 minute claim lease.
func New(store Store, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		log:      log,
		handlers: make(map[string]HandlerFunc),
		tick:     time.Second,
		lease:    time.Minute,
		batch:    20,
		now:      time.Now,
	}
}

// Register binds a handler to a job kind.  Claiming a kind with no handler
// parks the job as dead rather than retrying forever.
func (s *Scheduler) Register(kind string, h HandlerFunc) {
	s.handlers[kind] = h
}

// Enqueue persists a job of the given kind due at runAt.  The idemKey
// deduplicates: enqueueing the same key again is a no-op.
func (s *Scheduler) Enqueue(ctx context.Context, kind, idemKey string, payload any, runAt time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return s.store.Enqueue(ctx, repository.JobRecord{
		ID:      uuid.NewString(),
		Kind:    kind,
		IdemKey: idemKey,
		Payload: body,
		RunAt:   runAt,
	})
}

// Run polls until ctx is cancelled.  Claim errors are logged and retried on
// the next tick so a transient database outage does not kill the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				s.log.WithError(err).Error("scheduler: claim failed")
			}
		}
	}
}

// runOnce claims one batch of due jobs and dispatches them sequentially.
func (s *Scheduler) runOnce(ctx context.Context) error {
	jobs, err := s.store.ClaimDue(ctx, s.now(), s.lease, s.batch)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.dispatch(ctx, job)
	}
	return nil
}

func (s *Scheduler) dispatch(ctx context.Context, job repository.JobRecord) {
	entry := s.log.WithFields(logrus.Fields{"job_id": job.ID, "kind": job.Kind, "attempt": job.Attempts})

	h, ok := s.handlers[job.Kind]
	if !ok {
		entry.Error("scheduler: no handler for kind, parking job")
		if err := s.store.MarkDead(ctx, job.ID); err != nil {
			entry.WithError(err).Error("scheduler: mark dead failed")
		}
		return
	}

	if err := h(ctx, job.Payload); err != nil {
		entry.WithError(err).Warn("scheduler: job failed")
		if job.Attempts >= job.MaxAttempts {
			if derr := s.store.MarkDead(ctx, job.ID); derr != nil {
				entry.WithError(derr).Error("scheduler: mark dead failed")
			}
			return
		}
		if rerr := s.store.Reschedule(ctx, job.ID, s.now().Add(retryDelay(job.Attempts))); rerr != nil {
			entry.WithError(rerr).Error("scheduler: reschedule failed")
		}
		return
	}

	if err := s.store.MarkDone(ctx, job.ID); err != nil {
		entry.WithError(err).Error("scheduler: mark done failed")
	}
}

// retryDelay doubles per attempt starting at 30s, capped at 10 minutes.
func retryDelay(attempt int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempt && d < 10*time.Minute; i++ {
		d *= 2
	}
	if d > 10*time.Minute {
		d = 10 * time.Minute
	}
	return d
}
