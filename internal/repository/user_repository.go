package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/showza/showza-server/internal/model"
)

// UserRepo mirrors the identity provider's accounts into the local 'users'
// table.  Upsert semantics keep the mirror 1:1 with create and update events.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Upsert inserts or replaces the mirrored user record.
func (r *UserRepo) Upsert(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users (id, name, email, image_url) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), email = VALUES(email), image_url = VALUES(image_url)`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.ImageURL)
	return err
}

// Delete removes a mirrored user.  Deleting an unknown id is a no-op so that
// provider deletion events can be redelivered safely.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

// GetByID fetches a mirrored user.  Returns ErrUserNotFound when absent.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, name, email, image_url, created_at FROM users WHERE id = ?`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Name, &u.Email, &u.ImageURL, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetManyByIDs fetches the given users, silently skipping ids that are not
// mirrored (deleted accounts may still hold seats).
func (r *UserRepo) GetManyByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, name, email, image_url, created_at FROM users WHERE id IN (`
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
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
	return scanUsers(rows)
}

// ListAll returns every mirrored user.  Used for new-show alert fan-out.
func (r *UserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email, image_url, created_at FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]model.User, error) {
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ImageURL, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
