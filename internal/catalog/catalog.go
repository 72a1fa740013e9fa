// Package catalog resolves (artist, title) pairs into playable records from an
// external catalog search.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when neither the exact nor the artist-only search
// yields an acceptable record.
var ErrNotFound = errors.New("no acceptable catalog record")

// Provider names used in Entry.Providers.
const (
	ProviderSpotify     = "spotify"
	ProviderApple       = "apple"
	ProviderYouTube     = "youtube"
	ProviderDeezer      = "deezer"
	ProviderTidal       = "tidal"
	ProviderAmazonMusic = "amazonMusic"
	ProviderSoundCloud  = "soundcloud"
)

// Entry is a playable catalog record.
type Entry struct {
	ID          string            `json:"id"`
	Artist      string            `json:"artist"`
	Title       string            `json:"title"`
	Album       string            `json:"album,omitempty"`
	Explicit    bool              `json:"explicit"`
	Compilation bool              `json:"compilation,omitempty"`
	Providers   map[string]string `json:"providers,omitempty"`
	DurationMs  int               `json:"durationMs,omitempty"`
	Source      string            `json:"source,omitempty"`
}

// IsZero reports whether e is the zero Entry.
func (e Entry) IsZero() bool {
	return e.ID == "" && e.Artist == "" && e.Title == ""
}

// String formats the entry as "Artist - Title".
func (e Entry) String() string {
	return e.Artist + " - " + e.Title
}

// Query is a catalog search request.
type Query struct {
	Text     string
	Limit    int
	Explicit bool
}

// Searcher searches an external catalog. An empty result is not an error.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Entry, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, q Query) ([]Entry, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, q Query) ([]Entry, error) {
	return f(ctx, q)
}
