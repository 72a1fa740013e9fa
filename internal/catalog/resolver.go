package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/justestif/go-stagehand/internal/lookup"
)

// Default search sizes.
const (
	DefaultLimit       = 20
	DefaultArtistLimit = 30

	// artistPickWindow bounds the random pick among artist-only survivors.
	artistPickWindow = 10
)

// Resolver turns an (artist, title) pair into a catalog Entry.
type Resolver struct {
	searcher    Searcher
	filter      Filter
	limit       int
	artistLimit int
	timeout     time.Duration
	logger      *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFilter replaces the default hard filters.
func WithFilter(f Filter) ResolverOption {
	return func(r *Resolver) {
		r.filter = f
	}
}

// WithLimits sets the result counts requested by the exact and artist-only searches.
func WithLimits(exact, artistOnly int) ResolverOption {
	return func(r *Resolver) {
		if exact > 0 {
			r.limit = exact
		}
		if artistOnly > 0 {
			r.artistLimit = artistOnly
		}
	}
}

// WithTimeout bounds each search call.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRand sets the random source used by the artist-only pick.
func WithRand(rng *rand.Rand) ResolverOption {
	return func(r *Resolver) {
		if rng != nil {
			r.rng = rng
		}
	}
}

// NewResolver creates a Resolver over the given searcher.
func NewResolver(s Searcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		searcher:    s,
		filter:      DefaultFilter(),
		limit:       DefaultLimit,
		artistLimit: DefaultArtistLimit,
		timeout:     lookup.DefaultTimeout,
		logger:      slog.Default(),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve searches for artist and title, falling back to an artist-only search.
// Search failures are treated as empty results. Returns ErrNotFound when
// neither search yields an acceptable record.
func (r *Resolver) Resolve(ctx context.Context, artist, title string) (Entry, error) {
	if title != "" {
		hits := r.search(ctx, Query{Text: artist + " - " + title, Limit: r.limit, Explicit: true})
		if e, ok := r.pickExact(hits, artist, title); ok {
			r.logger.Debug("catalog match", "artist", e.Artist, "title", e.Title, "explicit", e.Explicit)
			return e, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	hits := r.search(ctx, Query{Text: artist, Limit: r.artistLimit, Explicit: true})
	if e, ok := r.pickArtistOnly(hits, artist); ok {
		r.logger.Debug("catalog artist-only match", "artist", e.Artist, "title", e.Title, "explicit", e.Explicit)
		return e, nil
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	return Entry{}, fmt.Errorf("%w: %s - %s", ErrNotFound, artist, title)
}

func (r *Resolver) search(ctx context.Context, q Query) []Entry {
	hits, err := lookup.Do(ctx, r.timeout, func(ctx context.Context) ([]Entry, error) {
		return r.searcher.Search(ctx, q)
	})
	if err != nil {
		r.logger.Warn("catalog search failed", "query", q.Text, "error", err)
		return nil
	}
	return hits
}

func (r *Resolver) pickExact(hits []Entry, artist, title string) (Entry, bool) {
	var survivors []Entry
	for _, e := range r.filter.Apply(hits) {
		if looseArtistMatch(e.Artist, artist) && looseTitleMatch(e.Title, title) {
			survivors = append(survivors, e)
		}
	}
	if len(survivors) == 0 {
		return Entry{}, false
	}
	if explicit := explicitOnly(survivors); len(explicit) > 0 {
		return explicit[0], true
	}
	return survivors[0], true
}

func (r *Resolver) pickArtistOnly(hits []Entry, artist string) (Entry, bool) {
	var survivors []Entry
	for _, e := range r.filter.Apply(hits) {
		if strictArtistMatch(e.Artist, artist) {
			survivors = append(survivors, e)
		}
	}
	if len(survivors) == 0 {
		return Entry{}, false
	}
	if explicit := explicitOnly(survivors); len(explicit) > 0 {
		survivors = explicit
	}

	n := min(len(survivors), artistPickWindow)
	r.rngMu.Lock()
	i := r.rng.IntN(n)
	r.rngMu.Unlock()
	return survivors[i], true
}

func explicitOnly(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Explicit {
			out = append(out, e)
		}
	}
	return out
}
