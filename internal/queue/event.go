// Package queue defines the domain events exchanged over the message broker
// and the publisher/consumer pair that moves them.  Notification delivery is
// consumed off durable queues so that booking-state correctness never
// depends on an email going out.
package queue

import "time"

// Queue names.  One durable queue per event type.
const (
	BookingConfirmedQueue = "booking.confirmed"
	ShowAddedQueue        = "show.added"
)

// BookingConfirmedEvent is published after a booking transitions to paid.
// It carries everything the notification worker needs to render the
// confirmation email and ticket QR without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID    string    `json:"booking_id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	UserEmail    string    `json:"user_email"`
	MovieTitle   string    `json:"movie_title"`
	ShowDateTime time.Time `json:"show_datetime"`
	Seats        []string  `json:"seats"`
	AmountCents  int64     `json:"amount_cents"`
}

// ShowAddedEvent is published when shows for a movie are created.  The
// worker fans a new-show alert out to every mirrored user.
type ShowAddedEvent struct {
	MovieTitle string `json:"movie_title"`
}
