package model

import "time"

// Show represents a scheduled screening of a movie.  Seat occupation is not
// stored on the show row itself: the occupied_seats table holds one row per
// taken seat label, keyed unique on (show_id, seat_label), so absence of a
// row means the seat is free.
//
// Fields:
//  ID           – UUID primary key.
//  MovieID      – catalog movie being screened.
//  ShowDateTime – when the screening starts (UTC).
//  PriceCents   – price per seat in cents, always positive.
//  CreatedAt    – creation timestamp.
type Show struct {
	ID           string    // shows.id
	MovieID      int64     // shows.movie_id
	ShowDateTime time.Time // shows.show_datetime
	PriceCents   int64     // shows.price_cents
	CreatedAt    time.Time // shows.created_at
}

// OccupiedSeat is one entry of a show's seat map.  Every row corresponds to
// exactly one live booking that lists the same seat label.
type OccupiedSeat struct {
	ShowID    string // occupied_seats.show_id
	SeatLabel string // occupied_seats.seat_label
	UserID    string // occupied_seats.user_id
	BookingID string // occupied_seats.booking_id
}
