package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/booking"
	"github.com/showza/showza-server/internal/middleware"
	"github.com/showza/showza-server/internal/model"
	"github.com/showza/showza-server/internal/repository"
)

// BookingService is the slice of the booking core the HTTP layer needs.
type BookingService interface {
	Create(ctx context.Context, userID string, in booking.CreateInput) (string, error)
	OccupiedSeats(ctx context.Context, showID string) ([]string, error)
	TopBookedMovie(ctx context.Context) (*model.TopMovie, error)
}

// BookingHandler serves the booking routes.
type BookingHandler struct {
	svc BookingService
	// fallbackOrigin builds redirect URLs when the request has no Origin
	// header (e.g. non-browser clients).
	fallbackOrigin string
	log            *logrus.Logger
}

// NewBookingHandler wires the booking routes.
func NewBookingHandler(svc BookingService, fallbackOrigin string, log *logrus.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, fallbackOrigin: fallbackOrigin, log: log}
}

type createBookingRequest struct {
	ShowID        string   `json:"showId"`
	SelectedSeats []string `json:"selectedSeats"`
}

// Create reserves seats for the authenticated user and responds with the
// hosted checkout URL.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	origin := c.Request().Header.Get("Origin")
	if origin == "" {
		origin = h.fallbackOrigin
	}

	url, err := h.svc.Create(c.Request().Context(), userID, booking.CreateInput{
		ShowID: req.ShowID,
		Seats:  req.SelectedSeats,
		Origin: origin,
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"success": true, "url": url})
	case errors.Is(err, booking.ErrInvalidSeats):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrShowNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "show not found")
	case errors.Is(err, repository.ErrSeatsUnavailable):
		return echo.NewHTTPError(http.StatusConflict, "selected seats are not available")
	case errors.Is(err, booking.ErrPaymentFailed):
		return echo.NewHTTPError(http.StatusBadGateway, "payment session could not be created")
	default:
		h.log.WithError(err).Error("create booking failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create booking")
	}
}

// OccupiedSeats lists the taken seat labels of a show.
func (h *BookingHandler) OccupiedSeats(c echo.Context) error {
	seats, err := h.svc.OccupiedSeats(c.Request().Context(), c.Param("showId"))
	if errors.Is(err, repository.ErrShowNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "show not found")
	}
	if err != nil {
		h.log.WithError(err).Error("list occupied seats failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list occupied seats")
	}
	if seats == nil {
		seats = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "occupiedSeats": seats})
}

// TopMovie returns the paid-booking aggregate leader.
func (h *BookingHandler) TopMovie(c echo.Context) error {
	top, err := h.svc.TopBookedMovie(c.Request().Context())
	if errors.Is(err, repository.ErrMovieNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no movies scheduled yet")
	}
	if err != nil {
		h.log.WithError(err).Error("top movie lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not compute top movie")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "movie": top})
}
