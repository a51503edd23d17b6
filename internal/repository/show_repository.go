package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/showza/showza-server/internal/model"
)

// ShowRepo manages persistence for shows.  All timestamps are stored and
// compared in UTC.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo returns a ShowRepo bound to the given database.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ShowRepo) DB() *sql.DB { return r.db }

// GetByID fetches a single show.  Returns ErrShowNotFound when absent.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	const q = `SELECT id, movie_id, show_datetime, price_cents, created_at FROM shows WHERE id = ?`
	var s model.Show
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.MovieID, &s.ShowDateTime, &s.PriceCents, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateMultiple inserts all given shows in a single statement.  Passing an
// empty slice has no effect and returns nil.
func (r *ShowRepo) CreateMultiple(ctx context.Context, shows []model.Show) error {
	if len(shows) == 0 {
		return nil
	}
	query := `INSERT INTO shows (id, movie_id, show_datetime, price_cents) VALUES `
	args := make([]interface{}, 0, len(shows)*4)
	for i, s := range shows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.ID, s.MovieID, s.ShowDateTime.UTC(), s.PriceCents)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ListUpcomingMovies returns the distinct movies that have at least one show
// starting at or after now, ordered by earliest show time.
func (r *ShowRepo) ListUpcomingMovies(ctx context.Context, now time.Time) ([]model.Movie, error) {
	const q = `SELECT m.id, m.title, m.overview, m.poster_path, m.backdrop_path, m.genres, m.casts,
			m.release_date, m.original_language, m.tagline, m.vote_average, m.runtime
		FROM movies m
		JOIN shows s ON s.movie_id = m.id
		WHERE s.show_datetime >= ?
		GROUP BY m.id
		ORDER BY MIN(s.show_datetime)`
	rows, err := r.db.QueryContext(ctx, q, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movies []model.Movie
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(
			&m.ID, &m.Title, &m.Overview, &m.PosterPath, &m.BackdropPath,
			&m.Genres, &m.Casts, &m.ReleaseDate, &m.OriginalLanguage,
			&m.Tagline, &m.VoteAverage, &m.Runtime,
		); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// ListUpcomingByMovie returns all shows for a movie starting at or after now,
// ordered by show time.
func (r *ShowRepo) ListUpcomingByMovie(ctx context.Context, movieID int64, now time.Time) ([]model.Show, error) {
	const q = `SELECT id, movie_id, show_datetime, price_cents, created_at
		FROM shows WHERE movie_id = ? AND show_datetime >= ? ORDER BY show_datetime`
	rows, err := r.db.QueryContext(ctx, q, movieID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanShows(rows)
}

// ListStartingBetween returns shows with show_datetime in [from, to).  The
// reminder sweep uses this to find screenings entering the reminder window.
func (r *ShowRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.Show, error) {
	const q = `SELECT id, movie_id, show_datetime, price_cents, created_at
		FROM shows WHERE show_datetime >= ? AND show_datetime < ? ORDER BY show_datetime`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanShows(rows)
}

// LatestMovie returns the movie of the most recently created show.  Used as
// the top-movie fallback when no paid booking exists yet.
func (r *ShowRepo) LatestMovie(ctx context.Context) (*model.Movie, error) {
	const q = `SELECT m.id, m.title, m.overview, m.poster_path, m.backdrop_path, m.genres, m.casts,
			m.release_date, m.original_language, m.tagline, m.vote_average, m.runtime
		FROM movies m
		JOIN shows s ON s.movie_id = m.id
		ORDER BY s.created_at DESC LIMIT 1`
	var m model.Movie
	err := r.db.QueryRowContext(ctx, q).Scan(
		&m.ID, &m.Title, &m.Overview, &m.PosterPath, &m.BackdropPath,
		&m.Genres, &m.Casts, &m.ReleaseDate, &m.OriginalLanguage,
		&m.Tagline, &m.VoteAverage, &m.Runtime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanShows(rows *sql.Rows) ([]model.Show, error) {
	var shows []model.Show
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(&s.ID, &s.MovieID, &s.ShowDateTime, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		shows = append(shows, s)
	}
	return shows, rows.Err()
}
