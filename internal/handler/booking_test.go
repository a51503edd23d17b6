package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showza/showza-server/internal/booking"
	"github.com/showza/showza-server/internal/model"
	"github.com/showza/showza-server/internal/repository"
)

type stubBookingService struct {
	createURL string
	createErr error
	gotUserID string
	gotInput  booking.CreateInput
	seats     []string
	seatsErr  error
	top       *model.TopMovie
	topErr    error
}

func (s *stubBookingService) Create(_ context.Context, userID string, in booking.CreateInput) (string, error) {
	s.gotUserID = userID
	s.gotInput = in
	return s.createURL, s.createErr
}

func (s *stubBookingService) OccupiedSeats(context.Context, string) ([]string, error) {
	return s.seats, s.seatsErr
}

func (s *stubBookingService) TopBookedMovie(context.Context) (*model.TopMovie, error) {
	return s.top, s.topErr
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newBookingContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBookingCreate(t *testing.T) {
	svc := &stubBookingService{createURL: "https://pay.example/cs_1"}
	h := NewBookingHandler(svc, "http://localhost:5173", quietLogger())

	c, rec := newBookingContext(http.MethodPost, "/api/booking/create",
		`{"showId":"show-1","selectedSeats":["A1","A2"]}`)
	c.Request().Header.Set("Origin", "https://showza.example")
	c.Set("user_id", "u1")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://pay.example/cs_1")
	assert.Equal(t, "u1", svc.gotUserID)
	assert.Equal(t, "show-1", svc.gotInput.ShowID)
	assert.Equal(t, "https://showza.example", svc.gotInput.Origin)
}

func TestBookingCreateFallbackOrigin(t *testing.T) {
	svc := &stubBookingService{createURL: "https://pay.example/cs_1"}
	h := NewBookingHandler(svc, "http://localhost:5173", quietLogger())

	c, _ := newBookingContext(http.MethodPost, "/api/booking/create",
		`{"showId":"show-1","selectedSeats":["A1"]}`)
	c.Set("user_id", "u1")

	require.NoError(t, h.Create(c))
	assert.Equal(t, "http://localhost:5173", svc.gotInput.Origin)
}

func TestBookingCreateErrorMapping(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		code int
	}{
		"invalid seats":   {booking.ErrInvalidSeats, http.StatusBadRequest},
		"show missing":    {repository.ErrShowNotFound, http.StatusNotFound},
		"seats taken":     {repository.ErrSeatsUnavailable, http.StatusConflict},
		"gateway failure": {booking.ErrPaymentFailed, http.StatusBadGateway},
	} {
		t.Run(name, func(t *testing.T) {
			svc := &stubBookingService{createErr: tc.err}
			h := NewBookingHandler(svc, "", quietLogger())

			c, _ := newBookingContext(http.MethodPost, "/api/booking/create",
				`{"showId":"show-1","selectedSeats":["A1"]}`)
			c.Set("user_id", "u1")

			err := h.Create(c)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.code, httpErr.Code)
		})
	}
}

func TestBookingCreateRequiresUser(t *testing.T) {
	h := NewBookingHandler(&stubBookingService{}, "", quietLogger())
	c, _ := newBookingContext(http.MethodPost, "/api/booking/create",
		`{"showId":"show-1","selectedSeats":["A1"]}`)

	err := h.Create(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestOccupiedSeats(t *testing.T) {
	svc := &stubBookingService{seats: []string{"A1", "B2"}}
	h := NewBookingHandler(svc, "", quietLogger())

	c, rec := newBookingContext(http.MethodGet, "/", "")
	c.SetParamNames("showId")
	c.SetParamValues("show-1")

	require.NoError(t, h.OccupiedSeats(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "occupiedSeats": ["A1", "B2"]}`, rec.Body.String())
}

func TestOccupiedSeatsEmptyShow(t *testing.T) {
	h := NewBookingHandler(&stubBookingService{}, "", quietLogger())

	c, rec := newBookingContext(http.MethodGet, "/", "")
	c.SetParamNames("showId")
	c.SetParamValues("show-1")

	require.NoError(t, h.OccupiedSeats(c))
	assert.JSONEq(t, `{"success": true, "occupiedSeats": []}`, rec.Body.String())
}

func TestOccupiedSeatsShowNotFound(t *testing.T) {
	h := NewBookingHandler(&stubBookingService{seatsErr: repository.ErrShowNotFound}, "", quietLogger())

	c, _ := newBookingContext(http.MethodGet, "/", "")
	c.SetParamNames("showId")
	c.SetParamValues("missing")

	err := h.OccupiedSeats(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestTopMovie(t *testing.T) {
	top := &model.TopMovie{
		Movie:             model.Movie{ID: 42, Title: "Arrival"},
		TotalBookings:     7,
		TotalSeats:        15,
		TotalRevenueCents: 15000,
	}
	h := NewBookingHandler(&stubBookingService{top: top}, "", quietLogger())

	c, rec := newBookingContext(http.MethodGet, "/", "")
	require.NoError(t, h.TopMovie(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Arrival"`)
	assert.Contains(t, rec.Body.String(), `"totalBookings":7`)
}
