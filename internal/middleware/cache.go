package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// bodyRecorder tees the response body so a successful JSON response can be
// stored after the handler runs.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// CacheResponse caches successful GET responses in Redis keyed by request
// URI.  A nil client or a Redis error makes the middleware a pass-through,
// never a failure.
func CacheResponse(client *redis.Client, prefix string, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if client == nil || c.Request().Method != http.MethodGet {
				return next(c)
			}
			key := prefix + ":" + c.Request().RequestURI

			if cached, err := client.Get(c.Request().Context(), key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, cached)
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				return err
			}
			if rec.status == http.StatusOK && rec.buf.Len() > 0 {
				_ = client.Set(c.Request().Context(), key, rec.buf.Bytes(), ttl).Err()
			}
			return nil
		}
	}
}
