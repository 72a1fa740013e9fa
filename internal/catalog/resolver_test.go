package catalog

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-stagehand/internal/lookup"
)

// fakeSearcher answers by query text and records queries.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]Entry
	errs    map[string]error
	queries []Query
}

func (f *fakeSearcher) Search(_ context.Context, q Query) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := f.errs[q.Text]; err != nil {
		return nil, err
	}
	return f.results[q.Text], nil
}

func entry(id, artist, title string, explicit bool) Entry {
	return Entry{ID: id, Artist: artist, Title: title, Explicit: explicit, Providers: spotifyOnly()}
}

func newTestResolver(s Searcher) *Resolver {
	return NewResolver(s, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestResolveExactPrefersExplicit(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{results: map[string][]Entry{
		"Run The Jewels - Legend Has It": {
			entry("clean", "Run The Jewels", "Legend Has It", false),
			entry("other", "Killer Mike", "Legend Has It", true),
			entry("explicit", "Run The Jewels", "Legend Has It", true),
		},
	}}

	got, err := newTestResolver(s).Resolve(context.Background(), "Run The Jewels", "Legend Has It")
	require.NoError(t, err)
	assert.Equal(t, "explicit", got.ID)

	require.Len(t, s.queries, 1)
	assert.Equal(t, DefaultLimit, s.queries[0].Limit)
	assert.True(t, s.queries[0].Explicit)
}

func TestResolveNeverReturnsDisallowedOnlyRecord(t *testing.T) {
	t.Parallel()

	sc := Entry{ID: "sc", Artist: "Isis", Title: "Celestial", Providers: map[string]string{"soundcloud": "1"}}
	s := &fakeSearcher{results: map[string][]Entry{
		"Isis - Celestial": {sc},
		"Isis":             {sc},
	}}

	_, err := newTestResolver(s).Resolve(context.Background(), "Isis", "Celestial")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveArtistOnlyRejectsSubstringArtist(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{results: map[string][]Entry{
		"Sleep": {
			entry("lullaby", "Lullabies for Baby Sleep", "Lullabies for Baby Sleep", true),
			entry("token", "Sleep Token", "The Summoning", true),
		},
	}}

	_, err := newTestResolver(s).Resolve(context.Background(), "Sleep", "Dragonaut")
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, s.queries, 2)
	assert.Equal(t, DefaultArtistLimit, s.queries[1].Limit)
}

func TestResolveArtistOnlyFallback(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{results: map[string][]Entry{
		"Sleep": {
			entry("lullaby", "Lullabies for Baby Sleep", "Sleep Sounds", true),
			entry("holy", "Sleep", "Holy Mountain", false),
			entry("feat", "Sleep feat. Matt Pike", "Dopesmoker", false),
		},
	}}

	r := newTestResolver(s)
	for i := 0; i < 20; i++ {
		got, err := r.Resolve(context.Background(), "Sleep", "Dragonaut")
		require.NoError(t, err)
		assert.Contains(t, []string{"holy", "feat"}, got.ID)
	}
}

func TestResolveArtistOnlyRejectsLookalikeCredits(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{results: map[string][]Entry{
		"Sleep": {
			entry("noise", "Sleep x White Noise Baby", "Lullaby Rain", true),
			entry("with", "Sleep with Me", "Episode 900", true),
			entry("comma", "Sleep, Baby, Sleep", "Hush", true),
		},
	}}

	got, err := newTestResolver(s).Resolve(context.Background(), "Sleep", "Dopesmoker")
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, got.IsZero())
}

func TestResolveArtistOnlyPicksWithinWindow(t *testing.T) {
	t.Parallel()

	var hits []Entry
	for i := 0; i < 25; i++ {
		hits = append(hits, entry(string(rune('a'+i)), "Om", "Song", true))
	}
	s := &fakeSearcher{results: map[string][]Entry{"Om": hits}}

	r := newTestResolver(s)
	for i := 0; i < 50; i++ {
		got, err := r.Resolve(context.Background(), "Om", "")
		require.NoError(t, err)
		assert.Less(t, got.ID, "k", "pick must come from the first ten survivors")
	}
	assert.Len(t, s.queries, 50, "an empty title skips the exact search")
}

func TestResolveTreatsSearchErrorsAsEmpty(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{
		errs: map[string]error{"Tool - Sober": errors.New("boom")},
		results: map[string][]Entry{
			"Tool": {entry("sober", "Tool", "Sober", true)},
		},
	}

	got, err := newTestResolver(s).Resolve(context.Background(), "Tool", "Sober")
	require.NoError(t, err)
	assert.Equal(t, "sober", got.ID)
}

func TestResolveAllFailuresIsNotFound(t *testing.T) {
	t.Parallel()

	failing := SearcherFunc(func(context.Context, Query) ([]Entry, error) {
		return nil, lookup.ErrUnavailable
	})

	_, err := newTestResolver(failing).Resolve(context.Background(), "Tool", "Sober")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &fakeSearcher{}
	_, err := newTestResolver(s).Resolve(ctx, "Tool", "Sober")
	assert.ErrorIs(t, err, context.Canceled)
}
