package model

import "time"

// Booking records a user's seat purchase for a show.  A booking is created
// unpaid together with its occupied_seats rows in one transaction; it either
// transitions to paid via the payment webhook or is deleted by the
// hold-window reconciliation job, which also frees its seats.
//
// Fields:
//  ID          – UUID primary key.
//  UserID      – identity of the booking holder.
//  ShowID      – show being booked.
//  Seats       – ordered, duplicate-free seat labels.
//  AmountCents – total price: show price × number of seats.
//  IsPaid      – payment state, false at creation.
//  PaymentLink – hosted checkout URL, empty until the gateway responds.
//  CreatedAt   – creation timestamp; the hold window counts from here.
type Booking struct {
	ID          string    // bookings.id
	UserID      string    // bookings.user_id
	ShowID      string    // bookings.show_id
	Seats       []string  // occupied_seats rows with this booking_id
	AmountCents int64     // bookings.amount_cents
	IsPaid      bool      // bookings.is_paid
	PaymentLink string    // bookings.payment_link
	CreatedAt   time.Time // bookings.created_at
}
