package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/catalog"
)

// CatalogProxy is the slice of the catalog client the proxy routes need.
type CatalogProxy interface {
	MovieDetails(ctx context.Context, id int64) (*catalog.MovieDetails, error)
	MovieCredits(ctx context.Context, id int64) (*catalog.Credits, error)
	MovieVideos(ctx context.Context, id int64) (*catalog.VideoList, error)
	SearchMovies(ctx context.Context, query string, page int) (*catalog.SearchPage, error)
	UpcomingMovies(ctx context.Context, page int) (*catalog.SearchPage, error)
}

// TMDBHandler proxies the external movie catalog so the browser never holds
// the API key.
type TMDBHandler struct {
	catalog CatalogProxy
	log     *logrus.Logger
}

// NewTMDBHandler wires the catalog proxy routes.
func NewTMDBHandler(cat CatalogProxy, log *logrus.Logger) *TMDBHandler {
	return &TMDBHandler{catalog: cat, log: log}
}

// trailerEntry is one upcoming movie paired with its primary trailer clip.
type trailerEntry struct {
	MovieID int64  `json:"movieId"`
	Title   string `json:"title"`
	Key     string `json:"key"`
	Name    string `json:"name"`
}

// trailersMaxMovies bounds the per-request catalog fan-out.
const trailersMaxMovies = 6

// Trailers lists upcoming movies with their first YouTube trailer.  Movies
// without a usable clip are skipped, as are per-movie lookup failures.
func (h *TMDBHandler) Trailers(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := h.catalog.UpcomingMovies(ctx, 1)
	if err != nil {
		return h.upstreamError(err, "list upcoming movies")
	}

	trailers := make([]trailerEntry, 0, trailersMaxMovies)
	for _, m := range page.Results {
		if len(trailers) == trailersMaxMovies {
			break
		}
		videos, err := h.catalog.MovieVideos(ctx, m.ID)
		if err != nil {
			h.log.WithError(err).WithField("movie_id", m.ID).Warn("trailer lookup failed")
			continue
		}
		for _, v := range videos.Results {
			if v.Site == "YouTube" && v.Type == "Trailer" {
				trailers = append(trailers, trailerEntry{MovieID: m.ID, Title: m.Title, Key: v.Key, Name: v.Name})
				break
			}
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "trailers": trailers})
}

// Search proxies a paged text search.
func (h *TMDBHandler) Search(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	page := 1
	_ = echo.QueryParamsBinder(c).Int("page", &page).BindError()
	if page < 1 {
		page = 1
	}
	result, err := h.catalog.SearchMovies(c.Request().Context(), query, page)
	if err != nil {
		return h.upstreamError(err, "search movies")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "result": result})
}

// Movie proxies one movie's details together with its cast.
func (h *TMDBHandler) Movie(c echo.Context) error {
	var id int64
	if err := echo.PathParamsBinder(c).Int64("id", &id).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}
	ctx := c.Request().Context()
	details, err := h.catalog.MovieDetails(ctx, id)
	if err != nil {
		return h.upstreamError(err, "movie details")
	}
	credits, err := h.catalog.MovieCredits(ctx, id)
	if err != nil {
		return h.upstreamError(err, "movie credits")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "movie": details, "casts": credits.Cast})
}

// Videos proxies one movie's clip list.
func (h *TMDBHandler) Videos(c echo.Context) error {
	var id int64
	if err := echo.PathParamsBinder(c).Int64("id", &id).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}
	videos, err := h.catalog.MovieVideos(c.Request().Context(), id)
	if err != nil {
		return h.upstreamError(err, "movie videos")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "videos": videos})
}

func (h *TMDBHandler) upstreamError(err error, op string) error {
	if status, msg, ok := catalogError(err); ok {
		return echo.NewHTTPError(status, msg)
	}
	h.log.WithError(err).Error(op + " failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "catalog request failed")
}

// catalogError maps the catalog client's typed failures to stable HTTP
// responses.
func catalogError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "movie not found", true
	case errors.Is(err, catalog.ErrRateLimited):
		return http.StatusTooManyRequests, "catalog rate limit reached, try again shortly", true
	case errors.Is(err, catalog.ErrBadCredentials):
		return http.StatusBadGateway, "catalog credentials rejected", true
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusServiceUnavailable, "catalog temporarily unavailable", true
	default:
		return 0, "", false
	}
}
