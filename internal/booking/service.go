// Package booking implements the seat-reservation core: creating a booking
// atomically with its seat map entries, wiring the payment session, and the
// hold-window reconciliation that releases abandoned holds.
package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/model"
	"github.com/showza/showza-server/internal/notify"
	"github.com/showza/showza-server/internal/payment"
	"github.com/showza/showza-server/internal/queue"
	"github.com/showza/showza-server/internal/repository"
)

// ErrInvalidSeats rejects malformed seat selections: empty requests,
// duplicate labels, bad label format or oversized requests.  The original
// system trusted the client here; labels are validated server-side now.
var ErrInvalidSeats = errors.New("invalid seat selection")

// ErrPaymentFailed signals that the booking was created but no checkout
// session could be obtained.  The booking stays pending and the hold-window
// reconciliation releases it if the caller does not retry payment in time.
var ErrPaymentFailed = errors.New("payment session creation failed")

// seatLabelRe matches venue seat labels: row letter A–L, seat number 1–99
// without leading zeros.
var seatLabelRe = regexp.MustCompile(`^[A-L][1-9][0-9]?$`)

// maxSeatsPerBooking bounds one request to a plausible group size.
const maxSeatsPerBooking = 20

// Store is the persistence contract of the booking core, implemented by
// repository.Store over MySQL and by an in-memory fake in tests.
type Store interface {
	Show(ctx context.Context, id string) (*model.Show, error)
	Movie(ctx context.Context, id int64) (*model.Movie, error)
	User(ctx context.Context, id string) (*model.User, error)
	CreateBookingWithSeats(ctx context.Context, b *model.Booking) error
	Booking(ctx context.Context, id string) (*model.Booking, error)
	SetPaymentLink(ctx context.Context, id, link string) error
	MarkBookingPaid(ctx context.Context, id string) (bool, error)
	ReleaseBooking(ctx context.Context, id string) error
	OccupiedSeatLabels(ctx context.Context, showID string) ([]string, error)
	TopBookedMovie(ctx context.Context) (*model.TopMovie, error)
	LatestMovie(ctx context.Context) (*model.Movie, error)
	ShowsStartingBetween(ctx context.Context, from, to time.Time) ([]model.Show, error)
	HoldersForShows(ctx context.Context, showIDs []string) ([]string, error)
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// PaymentGateway creates hosted checkout sessions, implemented by
// payment.Client.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p payment.CheckoutParams) (*payment.Session, error)
}

// JobScheduler enqueues durable delayed jobs, implemented by
// scheduler.Scheduler.
type JobScheduler interface {
	Enqueue(ctx context.Context, kind, idemKey string, payload any, runAt time.Time) error
}

// EventPublisher emits domain events for the notification worker,
// implemented by queue.Publisher.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// Config carries the booking core's tunables.
type Config struct {
	// HoldWindow is the authoritative seat-hold expiry: the delay between
	// booking creation and the reconciliation check.  The checkout session
	// expiry is derived from it (clamped up to the gateway minimum), never
	// the other way around.
	HoldWindow time.Duration
	// ReminderEvery is both the sweep period and the look-ahead of the
	// reminder window.
	ReminderEvery time.Duration
	// Currency for checkout sessions.
	Currency string
}

// Service is the seat-reservation and booking-lifecycle core.
type Service struct {
	store   Store
	gateway PaymentGateway
	jobs    JobScheduler
	events  EventPublisher
	mailer  notify.Mailer
	log     *logrus.Logger
	cfg     Config
	now     func() time.Time
}

// NewService wires the booking core.  All collaborators are required.
func NewService(store Store, gateway PaymentGateway, jobs JobScheduler, events EventPublisher, mailer notify.Mailer, log *logrus.Logger, cfg Config) *Service {
	if cfg.HoldWindow <= 0 {
		cfg.HoldWindow = 10 * time.Minute
	}
	if cfg.ReminderEvery <= 0 {
		cfg.ReminderEvery = 8 * time.Hour
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		store:   store,
		gateway: gateway,
		jobs:    jobs,
		events:  events,
		mailer:  mailer,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// CreateInput is one reservation request.
type CreateInput struct {
	ShowID string
	Seats  []string
	// Origin is the requesting site's origin, used to build the payment
	// redirect URLs.
	Origin string
}

// Create reserves the requested seats for userID and returns the hosted
// checkout URL.  Seat availability and occupation are a single conditional
// write inside one transaction, so overlapping concurrent requests cannot
// both succeed; disjoint ones never contend.  The reconciliation job is
// scheduled before the gateway call so an abandoned or failed payment
// always releases the seats at the hold window.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (string, error) {
	if err := validateSeats(in.Seats); err != nil {
		return "", err
	}

	show, err := s.store.Show(ctx, in.ShowID)
	if err != nil {
		return "", err
	}
	movie, err := s.store.Movie(ctx, show.MovieID)
	if err != nil {
		return "", err
	}

	b := &model.Booking{
		ID:          uuid.NewString(),
		UserID:      userID,
		ShowID:      show.ID,
		Seats:       in.Seats,
		AmountCents: show.PriceCents * int64(len(in.Seats)),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateBookingWithSeats(ctx, b); err != nil {
		return "", err
	}

	entry := s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"show_id":    show.ID,
		"user_id":    userID,
		"seats":      len(in.Seats),
	})
	entry.Info("booking created")

	deadline := b.CreatedAt.Add(s.cfg.HoldWindow)
	if err := s.jobs.Enqueue(ctx, KindPaymentReconcile, b.ID, reconcilePayload{BookingID: b.ID}, deadline); err != nil {
		// The booking exists but nothing would ever release it; undo.
		if relErr := s.store.ReleaseBooking(ctx, b.ID); relErr != nil {
			entry.WithError(relErr).Error("rollback after enqueue failure failed")
		}
		return "", fmt.Errorf("schedule reconciliation: %w", err)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutParams{
		AmountCents: b.AmountCents,
		Currency:    s.cfg.Currency,
		ProductName: movie.Title,
		SuccessURL:  in.Origin + "/loading/my-bookings",
		CancelURL:   in.Origin + "/my-bookings",
		BookingID:   b.ID,
		ExpiresAt:   deadline,
	})
	if err != nil {
		// Booking stays pending; reconciliation is already scheduled and
		// will free the seats at the hold window.
		entry.WithError(err).Error("checkout session creation failed")
		return "", fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	if err := s.store.SetPaymentLink(ctx, b.ID, session.URL); err != nil {
		entry.WithError(err).Error("store payment link failed")
	}
	return session.URL, nil
}

// OccupiedSeats returns the taken seat labels of a show.  The show must
// exist.
func (s *Service) OccupiedSeats(ctx context.Context, showID string) ([]string, error) {
	if _, err := s.store.Show(ctx, showID); err != nil {
		return nil, err
	}
	return s.store.OccupiedSeatLabels(ctx, showID)
}

// TopBookedMovie returns the movie with the most paid bookings.  With no
// paid bookings yet it falls back to the most recently scheduled movie with
// zeroed totals.
func (s *Service) TopBookedMovie(ctx context.Context) (*model.TopMovie, error) {
	top, err := s.store.TopBookedMovie(ctx)
	if err == nil {
		return top, nil
	}
	if !errors.Is(err, repository.ErrMovieNotFound) {
		return nil, err
	}
	latest, err := s.store.LatestMovie(ctx)
	if err != nil {
		return nil, err
	}
	return &model.TopMovie{Movie: *latest}, nil
}

// ConfirmPayment marks the booking paid and emits the confirmation event.
// Duplicate confirmations are no-ops.  A confirmation arriving for a
// booking already released by reconciliation is ignored: the seats are gone
// and the gateway refunds through its own expiry path.
func (s *Service) ConfirmPayment(ctx context.Context, bookingID string) error {
	changed, err := s.store.MarkBookingPaid(ctx, bookingID)
	if err != nil {
		return err
	}
	if !changed {
		s.log.WithField("booking_id", bookingID).Info("payment confirmation ignored (already paid or released)")
		return nil
	}

	ev, err := s.confirmationEvent(ctx, bookingID)
	if err != nil {
		// Paid state is committed; notification assembly must not undo it.
		s.log.WithError(err).WithField("booking_id", bookingID).Error("build confirmation event failed")
		return nil
	}
	if err := s.events.PublishBookingConfirmed(ctx, *ev); err != nil {
		s.log.WithError(err).WithField("booking_id", bookingID).Error("publish confirmation event failed")
	}
	return nil
}

func (s *Service) confirmationEvent(ctx context.Context, bookingID string) (*queue.BookingConfirmedEvent, error) {
	b, err := s.store.Booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	show, err := s.store.Show(ctx, b.ShowID)
	if err != nil {
		return nil, err
	}
	movie, err := s.store.Movie(ctx, show.MovieID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.User(ctx, b.UserID)
	if err != nil {
		return nil, err
	}
	return &queue.BookingConfirmedEvent{
		BookingID:    b.ID,
		UserID:       user.ID,
		UserName:     user.Name,
		UserEmail:    user.Email,
		MovieTitle:   movie.Title,
		ShowDateTime: show.ShowDateTime,
		Seats:        b.Seats,
		AmountCents:  b.AmountCents,
	}, nil
}

// Reconcile is the hold-window check: if the booking is still unpaid its
// seats are freed and the booking is deleted.  Safe to run repeatedly; a
// booking already released (or never created) short-circuits on not-found,
// and a booking paid any time before this read is left untouched.
func (s *Service) Reconcile(ctx context.Context, bookingID string) error {
	b, err := s.store.Booking(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.IsPaid {
		return nil
	}
	if err := s.store.ReleaseBooking(ctx, bookingID); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"show_id":    b.ShowID,
		"seats":      len(b.Seats),
	}).Info("unpaid booking released")
	return nil
}

// validateSeats enforces the server-side seat rules: 1–20 labels, venue
// format, no duplicates (rejected, not deduped).
func validateSeats(seats []string) error {
	if len(seats) == 0 {
		return fmt.Errorf("%w: no seats requested", ErrInvalidSeats)
	}
	if len(seats) > maxSeatsPerBooking {
		return fmt.Errorf("%w: at most %d seats per booking", ErrInvalidSeats, maxSeatsPerBooking)
	}
	seen := make(map[string]struct{}, len(seats))
	for _, seat := range seats {
		if !seatLabelRe.MatchString(seat) {
			return fmt.Errorf("%w: bad seat label %q", ErrInvalidSeats, seat)
		}
		if _, dup := seen[seat]; dup {
			return fmt.Errorf("%w: duplicate seat %q", ErrInvalidSeats, seat)
		}
		seen[seat] = struct{}{}
	}
	return nil
}
