package repository

import (
	"context"
	"database/sql"
	"time"
)

// JobRecord mirrors the 'jobs' table: a durable delayed work-item.  IdemKey
// deduplicates enqueues (one reconciliation per booking, one sweep per
// occurrence); RunAt is the persisted due-time that survives restarts.
type JobRecord struct {
	ID          string
	Kind        string
	IdemKey     string
	Payload     []byte
	RunAt       time.Time
	Attempts    int
	MaxAttempts int
	Status      string
}

// JobRepo provides the durable job store backing the scheduler.  Jobs are
// claimed by advancing run_at by a lease interval inside a short
// transaction, so a worker crash makes the job visible again after the
// lease instead of losing it.  Handlers must therefore be idempotent.
type JobRepo struct {
	db *sql.DB
}

// NewJobRepo returns a JobRepo bound to the given database.
func NewJobRepo(db *sql.DB) *JobRepo { return &JobRepo{db: db} }

// Enqueue persists a new job.  Enqueueing the same idem_key twice is a
// no-op, which makes scheduling safe to retry alongside its triggering
// operation.
func (r *JobRepo) Enqueue(ctx context.Context, j JobRecord) error {
	const q = `INSERT INTO jobs (id, kind, idem_key, payload, run_at, max_attempts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`
	maxAttempts := j.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	_, err := r.db.ExecContext(ctx, q, j.ID, j.Kind, j.IdemKey, j.Payload, j.RunAt.UTC(), maxAttempts)
	return err
}

// ClaimDue leases up to limit due pending jobs: inside one transaction it
// selects them with FOR UPDATE SKIP LOCKED (so concurrent pollers never
// claim the same job), pushes run_at forward by the lease and increments
// attempts, then returns the claimed records.
func (r *JobRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]JobRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT id, kind, idem_key, payload, run_at, attempts, max_attempts, status
		FROM jobs
		WHERE status = 'pending' AND run_at <= ?
		ORDER BY run_at
		LIMIT ?
		FOR UPDATE SKIP LOCKED`
	rows, err := tx.QueryContext(ctx, sel, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	var jobs []JobRecord
	for rows.Next() {
		var j JobRecord
		if scanErr := rows.Scan(&j.ID, &j.Kind, &j.IdemKey, &j.Payload, &j.RunAt, &j.Attempts, &j.MaxAttempts, &j.Status); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		jobs = append(jobs, j)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, tx.Commit()
	}

	leased := now.UTC().Add(lease)
	for i := range jobs {
		if _, err = tx.ExecContext(ctx,
			`UPDATE jobs SET run_at = ?, attempts = attempts + 1 WHERE id = ?`,
			leased, jobs[i].ID,
		); err != nil {
			return nil, err
		}
		jobs[i].Attempts++
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return jobs, nil
}

// MarkDone finalizes a successfully handled job.
func (r *JobRepo) MarkDone(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jobs SET status = 'done' WHERE id = ?`, id)
	return err
}

// Reschedule moves a failed job's due-time for a retry.
func (r *JobRepo) Reschedule(ctx context.Context, id string, runAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jobs SET run_at = ? WHERE id = ?`, runAt.UTC(), id)
	return err
}

// MarkDead parks a job that exhausted its attempts.
func (r *JobRepo) MarkDead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jobs SET status = 'dead' WHERE id = ?`, id)
	return err
}
