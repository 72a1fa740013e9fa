// Package repertoire samples the next artist and title from a curated,
// genre-categorized pool.
package repertoire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/justestif/go-stagehand/internal/genre"
	"github.com/justestif/go-stagehand/internal/lookup"
	"github.com/justestif/go-stagehand/internal/state"
)

// DefaultOversample is the oversampling constant K.
const DefaultOversample = 5

var (
	// ErrNoCandidate is returned when the pool and its fallback are both empty.
	ErrNoCandidate = errors.New("no candidate artist")

	// ErrNoTitles is returned when the chosen artist has no known titles.
	ErrNoTitles = errors.New("no titles for artist")
)

// TitleLister lists known track titles for an artist.
// *lastfm.Client satisfies it.
type TitleLister interface {
	GetTopTrackTitles(ctx context.Context, artist string) ([]string, error)
}

// Candidate is a selected artist and title.
type Candidate struct {
	Artist string       `json:"artist"`
	Title  string       `json:"title"`
	Bucket genre.Bucket `json:"bucket"`
	// Fallback is set when the exclusion-filtered pool was empty and the
	// artist was drawn from the whole pool.
	Fallback bool `json:"fallback,omitempty"`
}

// Selector draws candidates from a Pool.
type Selector struct {
	pool    Pool
	titles  TitleLister
	k       int
	timeout time.Duration
	logger  *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Selector.
type Option func(*Selector)

// WithOversample sets the oversampling constant K.
func WithOversample(k int) Option {
	return func(s *Selector) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithTimeout bounds the title lookup.
func WithTimeout(d time.Duration) Option {
	return func(s *Selector) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRand sets the random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// NewSelector creates a Selector over pool, listing titles through titles.
func NewSelector(pool Pool, titles TitleLister, opts ...Option) *Selector {
	s := &Selector{
		pool:    pool,
		titles:  titles,
		k:       DefaultOversample,
		timeout: lookup.DefaultTimeout,
		logger:  slog.Default(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pool returns the selector's pool.
func (s *Selector) Pool() Pool {
	return s.pool
}

// entry is one slot in the combined candidate pool.
type entry struct {
	artist string
	bucket genre.Bucket
}

// Select draws an artist weighted by w, skipping excluded artists, then an
// unplayed title of that artist. The artist is pushed into the exclusion ring
// even when the title lookup fails. A zero w is treated as uniform.
func (s *Selector) Select(ctx context.Context, ex *state.Exclusions, w genre.Weights) (Candidate, error) {
	pick, fallback, err := s.pickArtist(ex, w)
	if err != nil {
		return Candidate{}, err
	}
	ex.Push(pick.artist)

	titles, err := lookup.Do(ctx, s.timeout, func(ctx context.Context) ([]string, error) {
		return s.titles.GetTopTrackTitles(ctx, pick.artist)
	})
	if err != nil {
		if ctx.Err() != nil {
			return Candidate{}, ctx.Err()
		}
		return Candidate{}, fmt.Errorf("%w: %s: %w", ErrNoTitles, pick.artist, err)
	}
	if len(titles) == 0 {
		return Candidate{}, fmt.Errorf("%w: %s", ErrNoTitles, pick.artist)
	}

	unplayed := unplayedTitles(ex, pick.artist, titles)
	if len(unplayed) == 0 {
		s.logger.Debug("recycling played titles", "artist", pick.artist, "titles", len(titles))
		ex.ClearPlayed(pick.artist)
		unplayed = unplayedTitles(ex, pick.artist, titles)
	}

	title := unplayed[s.intN(len(unplayed))]
	ex.MarkPlayed(pick.artist, title)

	return Candidate{
		Artist:   pick.artist,
		Title:    title,
		Bucket:   pick.bucket,
		Fallback: fallback,
	}, nil
}

func (s *Selector) pickArtist(ex *state.Exclusions, w genre.Weights) (entry, bool, error) {
	if w.IsZero() {
		w = genre.Uniform()
	}

	combined := s.combine(w)
	var filtered []entry
	for _, e := range combined {
		if !ex.Excluded(e.artist) {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > 0 {
		return filtered[s.intN(len(filtered))], false, nil
	}

	// The weighted buckets are exhausted: widen to every bucket, still
	// honoring the ring and the last-performed artist.
	all := s.combine(genre.Uniform())
	if len(all) == 0 {
		return entry{}, false, ErrNoCandidate
	}
	var widened []entry
	for _, e := range all {
		if !ex.Excluded(e.artist) {
			widened = append(widened, e)
		}
	}
	if len(widened) > 0 {
		s.logger.Info("weighted pool exhausted, widening to all buckets", "weights", w.String(), "ring", ex.Len())
		return widened[s.intN(len(widened))], true, nil
	}

	// True exhaustion: every artist is excluded, so bypass the ring and the
	// last-performed artist rather than return nothing.
	s.logger.Warn("candidate pool exhausted, using unfiltered pool", "weights", w.String(), "ring", ex.Len())
	return all[s.intN(len(all))], true, nil
}

// combine replicates each weighted bucket's artists max(1, round(K*w/total))
// times.
func (s *Selector) combine(w genre.Weights) []entry {
	total := float64(w.Total())
	var out []entry
	for _, b := range genre.Buckets {
		weight := w.Get(b)
		if weight <= 0 {
			continue
		}
		copies := max(1, int(math.Round(float64(s.k)*float64(weight)/total)))
		artists := s.pool.Artists(b)
		for i := 0; i < copies; i++ {
			for _, a := range artists {
				out = append(out, entry{artist: a, bucket: b})
			}
		}
	}
	return out
}

func (s *Selector) intN(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntN(n)
}

func unplayedTitles(ex *state.Exclusions, artist string, titles []string) []string {
	var out []string
	for _, t := range titles {
		if !ex.Played(artist, t) {
			out = append(out, t)
		}
	}
	return out
}
