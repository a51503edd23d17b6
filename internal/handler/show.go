package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/catalog"
	"github.com/showza/showza-server/internal/model"
	"github.com/showza/showza-server/internal/queue"
	"github.com/showza/showza-server/internal/repository"
)

// ShowStore is the persistence slice the show routes need.
type ShowStore interface {
	Movie(ctx context.Context, id int64) (*model.Movie, error)
	SaveMovie(ctx context.Context, m *model.Movie) error
	AddShows(ctx context.Context, shows []model.Show) error
	UpcomingMovies(ctx context.Context, now time.Time) ([]model.Movie, error)
	UpcomingShowsByMovie(ctx context.Context, movieID int64, now time.Time) ([]model.Show, error)
}

// ShowCatalog fetches movie records from the external catalog.
type ShowCatalog interface {
	MovieDetails(ctx context.Context, id int64) (*catalog.MovieDetails, error)
	MovieCredits(ctx context.Context, id int64) (*catalog.Credits, error)
}

// ShowEvents publishes the new-show alert event.
type ShowEvents interface {
	PublishShowAdded(ctx context.Context, ev queue.ShowAddedEvent) error
}

// ShowHandler serves show scheduling and listing.
type ShowHandler struct {
	store   ShowStore
	catalog ShowCatalog
	events  ShowEvents
	log     *logrus.Logger
	now     func() time.Time
}

// NewShowHandler wires the show routes.
func NewShowHandler(store ShowStore, cat ShowCatalog, events ShowEvents, log *logrus.Logger) *ShowHandler {
	return &ShowHandler{store: store, catalog: cat, events: events, log: log, now: time.Now}
}

type showsInput struct {
	Date string   `json:"date"` // "2006-01-02"
	Time []string `json:"time"` // "15:04" entries
}

type addShowRequest struct {
	MovieID        int64        `json:"movieId"`
	ShowsInput     []showsInput `json:"showsInput"`
	ShowPriceCents int64        `json:"showPrice"`
}

// Add schedules screenings for a movie.  The movie is fetched from the
// catalog and cached locally on first reference; one show row is inserted
// per date/time pair; a show.added event fans out the new-show alert.
func (h *ShowHandler) Add(c echo.Context) error {
	var req addShowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.MovieID <= 0 || len(req.ShowsInput) == 0 || req.ShowPriceCents <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "movieId, showsInput and showPrice are required")
	}

	ctx := c.Request().Context()
	movie, err := h.ensureMovie(ctx, req.MovieID)
	if err != nil {
		if status, msg, ok := catalogError(err); ok {
			return echo.NewHTTPError(status, msg)
		}
		h.log.WithError(err).Error("cache movie failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load movie")
	}

	shows := make([]model.Show, 0, len(req.ShowsInput))
	for _, in := range req.ShowsInput {
		for _, t := range in.Time {
			at, err := time.Parse("2006-01-02 15:04", in.Date+" "+t)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid show date/time")
			}
			shows = append(shows, model.Show{
				ID:           uuid.NewString(),
				MovieID:      movie.ID,
				ShowDateTime: at.UTC(),
				PriceCents:   req.ShowPriceCents,
			})
		}
	}
	if len(shows) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no show times given")
	}
	if err := h.store.AddShows(ctx, shows); err != nil {
		h.log.WithError(err).Error("insert shows failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not add shows")
	}

	// Alert fan-out is best effort; scheduling already succeeded.
	if err := h.events.PublishShowAdded(ctx, queue.ShowAddedEvent{MovieTitle: movie.Title}); err != nil {
		h.log.WithError(err).Warn("publish show.added failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Show added successfully."})
}

// ensureMovie returns the locally cached movie, fetching details and credits
// from the catalog on first reference.
func (h *ShowHandler) ensureMovie(ctx context.Context, id int64) (*model.Movie, error) {
	movie, err := h.store.Movie(ctx, id)
	if err == nil {
		return movie, nil
	}
	if !errors.Is(err, repository.ErrMovieNotFound) {
		return nil, err
	}

	details, err := h.catalog.MovieDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	credits, err := h.catalog.MovieCredits(ctx, id)
	if err != nil {
		return nil, err
	}
	movie = &model.Movie{
		ID:               details.ID,
		Title:            details.Title,
		Overview:         details.Overview,
		PosterPath:       details.PosterPath,
		BackdropPath:     details.BackdropPath,
		Genres:           jsonOrEmptyArray(details.Genres),
		Casts:            jsonOrEmptyArray(credits.Cast),
		ReleaseDate:      details.ReleaseDate,
		OriginalLanguage: details.OriginalLanguage,
		Tagline:          details.Tagline,
		VoteAverage:      details.VoteAverage,
		Runtime:          details.Runtime,
	}
	if err := h.store.SaveMovie(ctx, movie); err != nil {
		return nil, err
	}
	return movie, nil
}

// jsonOrEmptyArray keeps the movies table's JSON columns valid when the
// catalog omits a field.
func jsonOrEmptyArray(raw []byte) string {
	if len(raw) == 0 {
		return "[]"
	}
	return string(raw)
}

// All lists the distinct movies with upcoming shows.
func (h *ShowHandler) All(c echo.Context) error {
	movies, err := h.store.UpcomingMovies(c.Request().Context(), h.now())
	if err != nil {
		h.log.WithError(err).Error("list upcoming movies failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list shows")
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "shows": movies})
}

type showTime struct {
	Time   time.Time `json:"time"`
	ShowID string    `json:"showId"`
}

// ByMovie returns one movie plus its upcoming shows grouped by calendar
// date.
func (h *ShowHandler) ByMovie(c echo.Context) error {
	var movieID int64
	if err := echo.PathParamsBinder(c).Int64("movieId", &movieID).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}
	ctx := c.Request().Context()

	movie, err := h.store.Movie(ctx, movieID)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "movie not found")
	}
	if err != nil {
		h.log.WithError(err).Error("load movie failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load movie")
	}

	shows, err := h.store.UpcomingShowsByMovie(ctx, movieID, h.now())
	if err != nil {
		h.log.WithError(err).Error("list shows failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list shows")
	}

	dateTime := make(map[string][]showTime)
	for _, s := range shows {
		day := s.ShowDateTime.UTC().Format("2006-01-02")
		dateTime[day] = append(dateTime[day], showTime{Time: s.ShowDateTime.UTC(), ShowID: s.ID})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "movie": movie, "dateTime": dateTime})
}
