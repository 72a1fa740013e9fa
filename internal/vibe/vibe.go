// Package vibe infers a room's genre preference from recent human plays.
package vibe

import (
	"context"
	"log/slog"

	"github.com/justestif/go-stagehand/internal/genre"
	"github.com/justestif/go-stagehand/internal/room"
	"github.com/justestif/go-stagehand/internal/tags"
)

// DefaultWindow is the number of recent human plays considered.
const DefaultWindow = 5

// Analyzer classifies recent human plays into genre weights.
type Analyzer struct {
	tags   tags.TagService
	window int
	logger *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWindow sets how many recent human plays are considered.
func WithWindow(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.window = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer that looks tags up through svc.
func NewAnalyzer(svc tags.TagService, opts ...Option) *Analyzer {
	a := &Analyzer{
		tags:   svc,
		window: DefaultWindow,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the genre weights for the snapshot's recent human activity.
// With no human plays at all it returns genre.Uniform(). Plays whose lookup
// fails or yields no known genre are skipped, so the result may be zero.
func (a *Analyzer) Analyze(ctx context.Context, snap room.Snapshot) genre.Weights {
	tracks := a.tracks(snap)
	if len(tracks) == 0 {
		return genre.Uniform()
	}

	results, err := a.tags.FetchTagsForTracks(ctx, tracks)
	if err != nil {
		a.logger.Debug("vibe lookup interrupted", "error", err)
	}

	var w genre.Weights
	skipped := 0
	for _, r := range results {
		if r.Error != nil || len(r.Tags) == 0 {
			skipped++
			continue
		}
		buckets := genre.Classify(r.Names())
		if len(buckets) == 0 {
			skipped++
			continue
		}
		for _, b := range buckets {
			w.Add(b)
		}
	}

	a.logger.Debug("vibe analyzed", "plays", len(tracks), "skipped", skipped, "weights", w.String())
	return w
}

// tracks returns the last window human plays plus the current human track,
// oldest first. The current track is dropped when it repeats the latest play.
func (a *Analyzer) tracks(snap room.Snapshot) []tags.Track {
	plays := snap.RecentHumanPlays
	if len(plays) > a.window {
		plays = plays[len(plays)-a.window:]
	}

	out := make([]tags.Track, 0, len(plays)+1)
	for _, p := range plays {
		if p.IsSelfPerformed {
			continue
		}
		out = append(out, tags.Track{Artist: p.Artist, Name: p.Title})
	}

	if cur, ok := snap.CurrentHumanTrack(); ok {
		key := tags.TrackKey(cur.Artist, cur.Title)
		if n := len(out); n == 0 || tags.TrackKey(out[n-1].Artist, out[n-1].Name) != key {
			out = append(out, tags.Track{Artist: cur.Artist, Name: cur.Title})
		}
	}
	return out
}
