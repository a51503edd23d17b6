package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/showza/showza-server/internal/model"
)

// MovieRepo manages the denormalized movie cache.  Rows are inserted once on
// first reference and read many times; there is no update path.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a MovieRepo bound to the given database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `id, title, overview, poster_path, backdrop_path, genres, casts,
	release_date, original_language, tagline, vote_average, runtime`

// GetByID fetches a cached movie.  Returns ErrMovieNotFound when the movie
// has never been referenced by a show.
func (r *MovieRepo) GetByID(ctx context.Context, id int64) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`
	var m model.Movie
	err := r.db.QueryRowContext(ctx, q, id).Scan(
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

// Create inserts a movie fetched from the catalog.  A concurrent insert of
// the same movie is tolerated: the duplicate-key error is swallowed because
// both writers carry identical upstream data.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (` + movieColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.Title, m.Overview, m.PosterPath, m.BackdropPath,
		m.Genres, m.Casts, m.ReleaseDate, m.OriginalLanguage,
		m.Tagline, m.VoteAverage, m.Runtime,
	)
	if isDuplicateKey(err) {
		return nil
	}
	return err
}
