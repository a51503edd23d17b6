package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovieDetailsRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42, "title": "Arrival", "runtime": 116}`))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithMaxAttempts(5))
	details, err := c.MovieDetails(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Arrival", details.Title)
	assert.Equal(t, 116, details.Runtime)
	assert.Equal(t, int32(3), hits.Load())
}

func TestMovieDetailsBadCredentialsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("bad-key", WithBaseURL(srv.URL), WithMaxAttempts(5))
	_, err := c.MovieDetails(context.Background(), 42)
	assert.ErrorIs(t, err, ErrBadCredentials)
	assert.Equal(t, int32(1), hits.Load())
}

func TestMovieDetailsNotFoundNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithMaxAttempts(5))
	_, err := c.MovieDetails(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRateLimitSurfacesAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithMaxAttempts(2))
	_, err := c.MovieDetails(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(2), hits.Load())
}

func TestUnavailableAfterExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithMaxAttempts(2))
	_, err := c.MovieDetails(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSearchMoviesPassesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page": 2, "results": [{"id": 1, "title": "Dune"}], "total_pages": 3, "total_results": 41}`))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL))
	page, err := c.SearchMovies(context.Background(), "dune", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Dune", page.Results[0].Title)
}
