// Package model defines the domain types used across the application.
package model

import "time"

// MediaKind distinguishes movies from TV shows.
type MediaKind string

// Supported media kinds.
const (
	KindMovie MediaKind = "movie"
	KindTV    MediaKind = "tv"
)

// MediaItem is a movie or TV show as supplied by the metadata provider.
// Date is the release date for movies and the first air date for shows,
// in the provider's YYYY-MM-DD form. PosterURL is empty when the provider
// supplied no poster.
type MediaItem struct {
	ID          int64
	Kind        MediaKind
	Title       string
	Date        string
	VoteAverage float64
	Popularity  float64
	Overview    string
	PosterURL   string
}

// WatchlistEntry is one item a user has saved to their watchlist.
type WatchlistEntry struct {
	ID      int64
	UserID  int64
	ItemID  int64
	Kind    MediaKind
	Title   string
	AddedAt time.Time
}
