package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/showza/showza-server/internal/model"
)

// Store composes the individual repositories behind the booking core's
// persistence contract.  Operations that must be atomic across tables
// (create-with-seats, release) open the transaction here so callers never
// manage *sql.Tx.
type Store struct {
	db       *sql.DB
	Movies   *MovieRepo
	Shows    *ShowRepo
	Bookings *BookingRepo
	Users    *UserRepo
	Jobs     *JobRepo
}

// NewStore builds the repository set over one database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Movies:   NewMovieRepo(db),
		Shows:    NewShowRepo(db),
		Bookings: NewBookingRepo(db),
		Users:    NewUserRepo(db),
		Jobs:     NewJobRepo(db),
	}
}

// Show fetches one show.
func (s *Store) Show(ctx context.Context, id string) (*model.Show, error) {
	return s.Shows.GetByID(ctx, id)
}

// Movie fetches one cached movie.
func (s *Store) Movie(ctx context.Context, id int64) (*model.Movie, error) {
	return s.Movies.GetByID(ctx, id)
}

// User fetches one mirrored user.
func (s *Store) User(ctx context.Context, id string) (*model.User, error) {
	return s.Users.GetByID(ctx, id)
}

// SaveMovie caches a catalog movie record locally.
func (s *Store) SaveMovie(ctx context.Context, m *model.Movie) error {
	return s.Movies.Create(ctx, m)
}

// AddShows inserts the given shows in one statement.
func (s *Store) AddShows(ctx context.Context, shows []model.Show) error {
	return s.Shows.CreateMultiple(ctx, shows)
}

// UpcomingMovies lists distinct movies with at least one future show.
func (s *Store) UpcomingMovies(ctx context.Context, now time.Time) ([]model.Movie, error) {
	return s.Shows.ListUpcomingMovies(ctx, now)
}

// UpcomingShowsByMovie lists a movie's future shows.
func (s *Store) UpcomingShowsByMovie(ctx context.Context, movieID int64, now time.Time) ([]model.Show, error) {
	return s.Shows.ListUpcomingByMovie(ctx, movieID, now)
}

// CreateBookingWithSeats inserts the booking row and all of its seat map
// entries in one transaction.  Any occupied seat aborts the whole write
// with ErrSeatsUnavailable and no partial state survives.
func (s *Store) CreateBookingWithSeats(ctx context.Context, b *model.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.Bookings.CreateTx(ctx, tx, b); err != nil {
		return err
	}
	if err := s.Bookings.OccupySeatsTx(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Booking fetches one booking with its seats.
func (s *Store) Booking(ctx context.Context, id string) (*model.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

// SetPaymentLink stores the checkout URL on the booking.
func (s *Store) SetPaymentLink(ctx context.Context, id, link string) error {
	return s.Bookings.SetPaymentLink(ctx, id, link)
}

// MarkBookingPaid flips is_paid exactly once.
func (s *Store) MarkBookingPaid(ctx context.Context, id string) (bool, error) {
	return s.Bookings.MarkPaid(ctx, id)
}

// ReleaseBooking deletes an unpaid booking and frees its seats in one
// transaction.  A booking already paid or already gone is left as is.
func (s *Store) ReleaseBooking(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.Bookings.ReleaseTx(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// OccupiedSeatLabels lists the taken seats of a show.
func (s *Store) OccupiedSeatLabels(ctx context.Context, showID string) ([]string, error) {
	return s.Bookings.OccupiedSeatLabels(ctx, showID)
}

// TopBookedMovie returns the paid-booking aggregate leader.
func (s *Store) TopBookedMovie(ctx context.Context) (*model.TopMovie, error) {
	return s.Bookings.TopBookedMovie(ctx)
}

// LatestMovie returns the movie of the newest show.
func (s *Store) LatestMovie(ctx context.Context) (*model.Movie, error) {
	return s.Shows.LatestMovie(ctx)
}

// ShowsStartingBetween lists shows with start time in [from, to).
func (s *Store) ShowsStartingBetween(ctx context.Context, from, to time.Time) ([]model.Show, error) {
	return s.Shows.ListStartingBetween(ctx, from, to)
}

// HoldersForShows lists distinct seat holders across the given shows.
func (s *Store) HoldersForShows(ctx context.Context, showIDs []string) ([]string, error) {
	return s.Bookings.HoldersForShows(ctx, showIDs)
}

// UsersByIDs fetches the given mirrored users, skipping unknown ids.
func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	return s.Users.GetManyByIDs(ctx, ids)
}
