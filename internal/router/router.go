// Package router maps HTTP routes onto handlers and middleware groups:
// public routes carry the rate limiter (and a short Redis response cache on
// the listing routes), authenticated routes require a valid JWT, admin
// routes additionally require the admin role, and webhooks verify their own
// HMAC signatures instead.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/showza/showza-server/internal/config"
	"github.com/showza/showza-server/internal/handler"
	"github.com/showza/showza-server/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Booking  *handler.BookingHandler
	Show     *handler.ShowHandler
	TMDB     *handler.TMDBHandler
	Payment  *handler.PaymentHandler
	Identity *handler.IdentityHandler
}

// New builds the echo engine with all routes mounted.
func New(h Handlers, jwtSecret string, rdb *redis.Client, cacheCfg config.CacheConfig, rlCfg config.RateLimitConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	e.GET("/health", handler.Health)

	api := e.Group("/api")

	var limiter echo.MiddlewareFunc
	if rlCfg.Enabled {
		limiter = middleware.RateLimit(rdb, rlCfg.Prefix, rlCfg.Limit, rlCfg.Window)
	} else {
		limiter = passthrough
	}
	var cached echo.MiddlewareFunc
	if cacheCfg.Enabled {
		cached = middleware.CacheResponse(rdb, cacheCfg.Prefix, cacheCfg.TTL)
	} else {
		cached = passthrough
	}

	// Public routes.
	api.POST("/auth/login", h.Auth.Login, limiter)
	api.GET("/show/all", h.Show.All, limiter, cached)
	api.GET("/show/:movieId", h.Show.ByMovie, limiter)
	api.GET("/booking/top-movie", h.Booking.TopMovie, limiter, cached)

	tmdb := api.Group("/tmdb", limiter)
	tmdb.GET("/trailers", h.TMDB.Trailers)
	tmdb.GET("/search", h.TMDB.Search)
	tmdb.GET("/movie/:id", h.TMDB.Movie)
	tmdb.GET("/movie/:id/videos", h.TMDB.Videos)

	// Webhooks authenticate by HMAC signature, not JWT.
	api.POST("/payment/webhook", h.Payment.Webhook)
	api.POST("/identity/webhook", h.Identity.Webhook)

	// Authenticated routes.
	auth := api.Group("", middleware.JWTAuth(jwtSecret))
	auth.POST("/booking/create", h.Booking.Create)
	auth.GET("/booking/occupied-seats/:showId", h.Booking.OccupiedSeats)

	// Admin routes.
	admin := auth.Group("", middleware.RequireRole("admin"))
	admin.POST("/show/add", h.Show.Add)

	return e
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
