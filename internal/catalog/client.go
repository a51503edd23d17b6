// Package catalog is the client for the external movie catalog (TMDB).
// Transient upstream failures are retried with bounded exponential backoff
// and jitter; every terminal failure maps to one of the typed errors below
// so handlers can answer with a stable user-facing message instead of the
// raw upstream error.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Typed upstream failures.  Unavailable and RateLimited are retried before
// surfacing; BadCredentials and NotFound are returned immediately.
var (
	ErrUnavailable    = errors.New("catalog temporarily unavailable")
	ErrBadCredentials = errors.New("catalog credentials rejected")
	ErrRateLimited    = errors.New("catalog rate limited")
	ErrNotFound       = errors.New("catalog resource not found")
)

const defaultBaseURL = "https://api.themoviedb.org/3"

// Client calls the catalog HTTP API with a bearer token.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	maxAttempts uint64
	maxInterval time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithMaxAttempts bounds the retry loop (total tries, not just retries).
func WithMaxAttempts(n uint64) Option { return func(c *Client) { c.maxAttempts = n } }

// New constructs a catalog Client.  Defaults: 5 attempts, 15s request
// timeout, exponential backoff with jitter capped at 10s between tries.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 15 * time.Second},
		maxAttempts: 5,
		maxInterval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MovieDetails is the catalog's movie record subset cached locally.
type MovieDetails struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	Overview         string          `json:"overview"`
	PosterPath       string          `json:"poster_path"`
	BackdropPath     string          `json:"backdrop_path"`
	Genres           json.RawMessage `json:"genres"`
	ReleaseDate      string          `json:"release_date"`
	OriginalLanguage string          `json:"original_language"`
	Tagline          string          `json:"tagline"`
	VoteAverage      float64         `json:"vote_average"`
	Runtime          int             `json:"runtime"`
	Popularity       float64         `json:"popularity"`
}

// Credits holds the raw cast list of a movie.
type Credits struct {
	ID   int64           `json:"id"`
	Cast json.RawMessage `json:"cast"`
}

// Video is one clip attached to a movie (trailers, teasers).
type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// VideoList is the catalog's videos envelope.
type VideoList struct {
	ID      int64   `json:"id"`
	Results []Video `json:"results"`
}

// SearchResult is one row of a search or upcoming listing.
type SearchResult struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	OriginalLanguage string  `json:"original_language"`
	VoteAverage      float64 `json:"vote_average"`
	Popularity       float64 `json:"popularity"`
}

// SearchPage is one page of results plus the upstream paging totals.
type SearchPage struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// MovieDetails fetches one movie by catalog id.
func (c *Client) MovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	var out MovieDetails
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MovieCredits fetches the cast list of a movie.
func (c *Client) MovieCredits(ctx context.Context, id int64) (*Credits, error) {
	var out Credits
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/credits", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MovieVideos fetches the clips of a movie.
func (c *Client) MovieVideos(ctx context.Context, id int64) (*VideoList, error) {
	var out VideoList
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/videos", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchMovies performs a text search with paging.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*SearchPage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	var out SearchPage
	if err := c.get(ctx, "/search/movie", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpcomingMovies lists upcoming releases with paging.
func (c *Client) UpcomingMovies(ctx context.Context, page int) (*SearchPage, error) {
	q := url.Values{}
	q.Set("language", "en-US")
	q.Set("page", strconv.Itoa(page))
	var out SearchPage
	if err := c.get(ctx, "/movie/upcoming", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs one GET with the retry policy applied.  5xx, 429 and network
// errors retry; 401 and 404 are permanent.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	op := func() error {
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			// Network-level failure, retryable.
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode catalog response: %w", err))
			}
			return nil
		case resp.StatusCode == http.StatusUnauthorized:
			return backoff.Permanent(ErrBadCredentials)
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrRateLimited
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = c.maxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxAttempts-1), ctx)
	return backoff.Retry(op, policy)
}
