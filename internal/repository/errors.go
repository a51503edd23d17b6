// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific error strings.
package repository

import "errors"

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrMovieNotFound indicates that a movie is not present in the local cache.
var ErrMovieNotFound = errors.New("movie not found")

// ErrBookingNotFound indicates that a booking does not (or no longer does)
// exist.  The reconciliation job treats this as a completed earlier run.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound indicates that an identity has not been mirrored locally.
var ErrUserNotFound = errors.New("user not found")

// ErrSeatsUnavailable is returned when at least one requested seat label is
// already present in the show's seat map. Handlers translate this into an
// HTTP 409 response.
var ErrSeatsUnavailable = errors.New("seats not available")
