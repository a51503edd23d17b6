package model

// Movie is a denormalized cache of a catalog record.  A row is written the
// first time a show references an unseen movie and is never refreshed in
// place afterwards.  Genres and Casts carry the upstream JSON verbatim so the
// client can render them without another catalog round trip.
//
// Fields:
//  ID               – TMDB numeric identifier, reused as the primary key.
//  Title            – movie title.
//  Overview         – synopsis text.
//  PosterPath       – relative poster image path on the catalog CDN.
//  BackdropPath     – relative backdrop image path.
//  Genres           – raw JSON array of {id, name} objects.
//  Casts            – raw JSON array of cast members.
//  ReleaseDate      – release date as "YYYY-MM-DD".
//  OriginalLanguage – ISO 639-1 language code.
//  Tagline          – marketing tagline, may be empty.
//  VoteAverage      – upstream average rating.
//  Runtime          – runtime in minutes.
type Movie struct {
	ID               int64   `json:"id"`                // movies.id
	Title            string  `json:"title"`             // movies.title
	Overview         string  `json:"overview"`          // movies.overview
	PosterPath       string  `json:"poster_path"`       // movies.poster_path
	BackdropPath     string  `json:"backdrop_path"`     // movies.backdrop_path
	Genres           string  `json:"genres"`            // movies.genres (raw JSON)
	Casts            string  `json:"casts"`             // movies.casts (raw JSON)
	ReleaseDate      string  `json:"release_date"`      // movies.release_date
	OriginalLanguage string  `json:"original_language"` // movies.original_language
	Tagline          string  `json:"tagline"`           // movies.tagline
	VoteAverage      float64 `json:"vote_average"`      // movies.vote_average
	Runtime          int     `json:"runtime"`           // movies.runtime
}

// TopMovie is the aggregate returned by the top-booked-movie query: the
// most-booked movie by paid-booking count together with its totals.
type TopMovie struct {
	Movie
	TotalBookings     int64 `json:"totalBookings"`
	TotalSeats        int64 `json:"totalSeats"`
	TotalRevenueCents int64 `json:"totalRevenue"`
}
