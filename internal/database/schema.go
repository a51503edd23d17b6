package database

import (
	"context"
	"database/sql"
)

// migrations are applied in order at startup.  Every statement is
// idempotent so restarting the server is always safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id                BIGINT PRIMARY KEY,
		title             VARCHAR(255) NOT NULL,
		overview          TEXT NOT NULL,
		poster_path       VARCHAR(255) NOT NULL DEFAULT '',
		backdrop_path     VARCHAR(255) NOT NULL DEFAULT '',
		genres            JSON NOT NULL,
		casts             JSON NOT NULL,
		release_date      VARCHAR(10) NOT NULL DEFAULT '',
		original_language VARCHAR(8) NOT NULL DEFAULT '',
		tagline           VARCHAR(512) NOT NULL DEFAULT '',
		vote_average      DOUBLE NOT NULL DEFAULT 0,
		runtime           INT NOT NULL DEFAULT 0,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS shows (
		id            CHAR(36) PRIMARY KEY,
		movie_id      BIGINT NOT NULL,
		show_datetime DATETIME NOT NULL,
		price_cents   BIGINT NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_shows_datetime (show_datetime),
		KEY idx_shows_movie (movie_id),
		CONSTRAINT fk_shows_movie FOREIGN KEY (movie_id) REFERENCES movies(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS users (
		id         VARCHAR(64) PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		email      VARCHAR(255) NOT NULL,
		image_url  VARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id           CHAR(36) PRIMARY KEY,
		user_id      VARCHAR(64) NOT NULL,
		show_id      CHAR(36) NOT NULL,
		amount_cents BIGINT NOT NULL,
		is_paid      TINYINT(1) NOT NULL DEFAULT 0,
		payment_link VARCHAR(1024) NOT NULL DEFAULT '',
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_bookings_show (show_id),
		KEY idx_bookings_user (user_id),
		CONSTRAINT fk_bookings_show FOREIGN KEY (show_id) REFERENCES shows(id)
	) ENGINE=InnoDB`,

	// The seat map.  The unique key on (show_id, seat_label) is what turns
	// "check availability then write" into a single conditional insert.
	`CREATE TABLE IF NOT EXISTS occupied_seats (
		show_id    CHAR(36) NOT NULL,
		seat_label VARCHAR(8) NOT NULL,
		user_id    VARCHAR(64) NOT NULL,
		booking_id CHAR(36) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (show_id, seat_label),
		KEY idx_occupied_booking (booking_id),
		CONSTRAINT fk_occupied_show FOREIGN KEY (show_id) REFERENCES shows(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id           CHAR(36) PRIMARY KEY,
		kind         VARCHAR(64) NOT NULL,
		idem_key     VARCHAR(128) NOT NULL,
		payload      JSON NOT NULL,
		run_at       DATETIME NOT NULL,
		attempts     INT NOT NULL DEFAULT 0,
		max_attempts INT NOT NULL DEFAULT 5,
		status       ENUM('pending','done','dead') NOT NULL DEFAULT 'pending',
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_jobs_idem (idem_key),
		KEY idx_jobs_due (status, run_at)
	) ENGINE=InnoDB`,
}

// Migrate creates all tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
