package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-stagehand/internal/catalog"
)

// maxSearchLimit is the largest page the search endpoint returns.
const maxSearchLimit = 50

// Search implements catalog.Searcher using track search.
// Spotify has no explicit-only filter, so q.Explicit is left to the resolver.
func (c *Client) Search(ctx context.Context, q catalog.Query) ([]catalog.Entry, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	opts := []spotify.RequestOption{spotify.Limit(limit)}
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	result, err := c.api.Search(ctx, q.Text, spotify.SearchTypeTrack, opts...)
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	if result.Tracks == nil {
		return []catalog.Entry{}, nil
	}

	entries := make([]catalog.Entry, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		entries = append(entries, convertTrack(t))
	}
	return entries, nil
}

// convertTrack converts a Spotify FullTrack to a catalog.Entry.
func convertTrack(t spotify.FullTrack) catalog.Entry {
	// Join artist names
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return catalog.Entry{
		ID:          t.ID.String(),
		Artist:      strings.Join(artists, ", "),
		Title:       t.Name,
		Album:       t.Album.Name,
		Explicit:    t.Explicit,
		Compilation: t.Album.AlbumType == "compilation",
		Providers:   map[string]string{catalog.ProviderSpotify: t.ID.String()},
		DurationMs:  int(t.Duration),
		Source:      catalog.ProviderSpotify,
	}
}
