package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/showza/showza-server/internal/model"
)

// BookingRepo provides persistence for bookings and the occupied_seats rows
// that make up each show's seat map.  Creation and release always touch both
// tables, so those methods take a transaction started by the caller.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB for transaction control.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// isDuplicateKey reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// CreateTx inserts the booking row within the caller's transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, user_id, show_id, amount_cents, is_paid) VALUES (?, ?, ?, ?, 0)`
	_, err := tx.ExecContext(ctx, q, b.ID, b.UserID, b.ShowID, b.AmountCents)
	return err
}

// OccupySeatsTx marks every seat in b.Seats as taken by b.UserID in one
// multi-row insert.  The primary key on (show_id, seat_label) makes the
// availability check and the write a single conditional operation: if any
// seat is already occupied the whole statement fails and ErrSeatsUnavailable
// is returned, leaving the transaction to be rolled back with no partial
// state.  Two concurrent requests for overlapping seats serialize on the
// index and exactly one commits.
func (r *BookingRepo) OccupySeatsTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if len(b.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO occupied_seats (show_id, seat_label, user_id, booking_id) VALUES `
	args := make([]interface{}, 0, len(b.Seats)*4)
	for i, seat := range b.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, b.ShowID, seat, b.UserID, b.ID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	if isDuplicateKey(err) {
		return ErrSeatsUnavailable
	}
	return err
}

// GetByID loads a booking together with its seat labels.  Returns
// ErrBookingNotFound when the booking does not exist.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	const q = `SELECT id, user_id, show_id, amount_cents, is_paid, payment_link, created_at
		FROM bookings WHERE id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.ShowID, &b.AmountCents, &b.IsPaid, &b.PaymentLink, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	const seatQ = `SELECT seat_label FROM occupied_seats WHERE booking_id = ? ORDER BY seat_label`
	rows, err := r.db.QueryContext(ctx, seatQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		b.Seats = append(b.Seats, seat)
	}
	return &b, rows.Err()
}

// SetPaymentLink stores the checkout URL returned by the payment gateway.
func (r *BookingRepo) SetPaymentLink(ctx context.Context, id, link string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bookings SET payment_link = ? WHERE id = ?`, link, id)
	return err
}

// MarkPaid flips is_paid for an unpaid booking.  The returned bool reports
// whether this call performed the transition, so duplicate webhook
// deliveries mark at most once.
func (r *BookingRepo) MarkPaid(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET is_paid = 1 WHERE id = ? AND is_paid = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseTx deletes an unpaid booking and its occupied_seats rows within the
// caller's transaction.  The booking row goes first, keyed on is_paid = 0: a
// payment webhook that lands between the caller's read and this delete flips
// is_paid, the guarded delete matches nothing and the seats stay held.
// Deleting a booking that is already gone or paid is not an error.
func (r *BookingRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND is_paid = 0`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM occupied_seats WHERE booking_id = ?`, id)
	return err
}

// OccupiedSeatLabels returns the taken seat labels of a show in label order.
func (r *BookingRepo) OccupiedSeatLabels(ctx context.Context, showID string) ([]string, error) {
	const q = `SELECT seat_label FROM occupied_seats WHERE show_id = ? ORDER BY seat_label`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// HoldersForShows returns the distinct user IDs occupying at least one seat
// on any of the given shows.  Passing no show IDs yields an empty result.
func (r *BookingRepo) HoldersForShows(ctx context.Context, showIDs []string) ([]string, error) {
	if len(showIDs) == 0 {
		return nil, nil
	}
	query := `SELECT DISTINCT user_id FROM occupied_seats WHERE show_id IN (`
	args := make([]interface{}, 0, len(showIDs))
	for i, id := range showIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TopBookedMovie aggregates paid bookings per movie and returns the movie
// with the highest paid-booking count along with its totals.  Returns
// ErrMovieNotFound when no paid booking exists.
func (r *BookingRepo) TopBookedMovie(ctx context.Context) (*model.TopMovie, error) {
	const q = `SELECT m.id, m.title, m.overview, m.poster_path, m.backdrop_path, m.genres, m.casts,
			m.release_date, m.original_language, m.tagline, m.vote_average, m.runtime,
			COUNT(b.id) AS total_bookings,
			COALESCE(SUM((SELECT COUNT(*) FROM occupied_seats os WHERE os.booking_id = b.id)), 0) AS total_seats,
			COALESCE(SUM(b.amount_cents), 0) AS total_revenue
		FROM bookings b
		JOIN shows s ON s.id = b.show_id
		JOIN movies m ON m.id = s.movie_id
		WHERE b.is_paid = 1
		GROUP BY m.id
		ORDER BY total_bookings DESC
		LIMIT 1`
	var t model.TopMovie
	err := r.db.QueryRowContext(ctx, q).Scan(
		&t.ID, &t.Title, &t.Overview, &t.PosterPath, &t.BackdropPath,
		&t.Genres, &t.Casts, &t.ReleaseDate, &t.OriginalLanguage,
		&t.Tagline, &t.VoteAverage, &t.Runtime,
		&t.TotalBookings, &t.TotalSeats, &t.TotalRevenueCents,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
