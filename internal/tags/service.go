// Package tags fetches Last.fm tags for batches of tracks with bounded
// concurrency and an optional database-backed cache.
package tags

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-stagehand/internal/lastfm"
	"github.com/justestif/go-stagehand/internal/lookup"
)

// TagSource indicates where the tags came from.
type TagSource string

const (
	// SourceTrack means tags came from track.getTopTags.
	SourceTrack TagSource = "track"
	// SourceCache means tags came from the database cache.
	SourceCache TagSource = "cache"
	// SourceNone means no tags were found or the lookup failed.
	SourceNone TagSource = "none"
)

// Default concurrency for batch processing.
const DefaultConcurrency = 5

// Track represents the minimal track info needed for tag lookup.
// An empty ID defaults to TrackKey(Artist, Name).
type Track struct {
	ID     string
	Name   string
	Artist string
}

// TrackKey normalizes an artist and title into a cache key.
func TrackKey(artist, title string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(artist) + "|" + norm(title)
}

// TrackTags holds the tags fetched for a track.
type TrackTags struct {
	TrackID string
	Tags    []lastfm.Tag
	Source  TagSource
	Error   error // Non-nil if fetching failed
}

// Names returns the tag names in order.
func (t TrackTags) Names() []string {
	names := make([]string, len(t.Tags))
	for i, tag := range t.Tags {
		names[i] = tag.Name
	}
	return names
}

// TagFetcher abstracts the Last.fm client for testing.
type TagFetcher interface {
	GetTags(ctx context.Context, artist, track string) ([]lastfm.Tag, error)
}

// TagService defines the interface for fetching tags for tracks.
type TagService interface {
	FetchTagsForTracks(ctx context.Context, tracks []Track) ([]TrackTags, error)
}

// Service implements TagService on top of a TagFetcher.
type Service struct {
	fetcher     TagFetcher
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets the number of concurrent tag fetch operations.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTimeout bounds each individual tag lookup.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for failed lookups.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new tag service.
func NewService(fetcher TagFetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
		timeout:     lookup.DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchTagsForTracks looks up tags for every track, at most concurrency at a
// time, and returns them in input order. A failed lookup is reported in
// TrackTags.Error (wrapping lookup.ErrUnavailable) and does not fail the
// batch; only cancellation of ctx does.
func (s *Service) FetchTagsForTracks(ctx context.Context, tracks []Track) ([]TrackTags, error) {
	results := make([]TrackTags, len(tracks))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, t := range tracks {
		if t.ID == "" {
			t.ID = TrackKey(t.Artist, t.Name)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = TrackTags{TrackID: t.ID, Tags: []lastfm.Tag{}, Source: SourceNone, Error: err}
				return nil
			}
			results[i] = s.fetchOne(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

func (s *Service) fetchOne(ctx context.Context, t Track) TrackTags {
	tags, err := lookup.Do(ctx, s.timeout, func(ctx context.Context) ([]lastfm.Tag, error) {
		return s.fetcher.GetTags(ctx, t.Artist, t.Name)
	})

	result := TrackTags{TrackID: t.ID, Tags: tags, Error: err}
	switch {
	case err != nil:
		s.logger.Debug("tag lookup failed", "artist", t.Artist, "title", t.Name, "error", err)
		result.Source = SourceNone
		result.Tags = []lastfm.Tag{}
	case len(tags) == 0:
		result.Source = SourceNone
		result.Tags = []lastfm.Tag{}
	default:
		// The Last.fm client falls back to artist tags internally, so the
		// track and artist cases are indistinguishable here.
		result.Source = SourceTrack
	}
	return result
}
