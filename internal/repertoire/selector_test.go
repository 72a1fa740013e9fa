package repertoire

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-stagehand/internal/genre"
	"github.com/justestif/go-stagehand/internal/lookup"
	"github.com/justestif/go-stagehand/internal/state"
)

// fakeTitles returns fixed titles per artist, or a default list.
type fakeTitles struct {
	mu       sync.Mutex
	byArtist map[string][]string
	fail     map[string]bool
	calls    int
}

func (f *fakeTitles) GetTopTrackTitles(_ context.Context, artist string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[artist] {
		return nil, errors.New("listing unavailable")
	}
	if titles, ok := f.byArtist[artist]; ok {
		return titles, nil
	}
	return []string{"Song A", "Song B", "Song C"}, nil
}

func testPool(perBucket int) Pool {
	var p Pool
	for i := 0; i < perBucket; i++ {
		p.HipHop = append(p.HipHop, fmt.Sprintf("hiphop-%d", i))
		p.Rock = append(p.Rock, fmt.Sprintf("rock-%d", i))
		p.Metal = append(p.Metal, fmt.Sprintf("metal-%d", i))
	}
	return p
}

func newTestSelector(p Pool, titles TitleLister, seed uint64) *Selector {
	return NewSelector(p, titles, WithRand(rand.New(rand.NewPCG(seed, seed+1))))
}

func TestSelectRockOnlyWeights(t *testing.T) {
	t.Parallel()

	s := newTestSelector(testPool(10), &fakeTitles{}, 1)
	w := genre.Weights{Rock: 5}

	for i := 0; i < 500; i++ {
		c, err := s.Select(context.Background(), state.NewExclusions(15), w)
		require.NoError(t, err)
		assert.Equal(t, genre.Rock, c.Bucket)
		assert.True(t, strings.HasPrefix(c.Artist, "rock-"), c.Artist)
	}
}

func TestSelectUniformSharesFollowPoolSizes(t *testing.T) {
	t.Parallel()

	p := Pool{}
	for i := 0; i < 10; i++ {
		p.HipHop = append(p.HipHop, fmt.Sprintf("h%d", i))
	}
	for i := 0; i < 20; i++ {
		p.Rock = append(p.Rock, fmt.Sprintf("r%d", i))
	}
	for i := 0; i < 30; i++ {
		p.Metal = append(p.Metal, fmt.Sprintf("m%d", i))
	}

	s := newTestSelector(p, &fakeTitles{}, 7)
	const trials = 3000
	counts := map[genre.Bucket]int{}
	for i := 0; i < trials; i++ {
		c, err := s.Select(context.Background(), state.NewExclusions(15), genre.Uniform())
		require.NoError(t, err)
		counts[c.Bucket]++
	}

	want := map[genre.Bucket]float64{genre.HipHop: 10.0 / 60, genre.Rock: 20.0 / 60, genre.Metal: 30.0 / 60}
	for b, share := range want {
		got := float64(counts[b]) / trials
		assert.InDelta(t, share, got, 0.05, "bucket %s", b)
	}
}

func TestSelectZeroWeightsTreatedAsUniform(t *testing.T) {
	t.Parallel()

	s := newTestSelector(testPool(5), &fakeTitles{}, 3)
	seen := map[genre.Bucket]bool{}
	for i := 0; i < 300; i++ {
		c, err := s.Select(context.Background(), state.NewExclusions(15), genre.Weights{})
		require.NoError(t, err)
		seen[c.Bucket] = true
	}
	assert.Len(t, seen, 3)
}

func TestSelectDominantBucketDominates(t *testing.T) {
	t.Parallel()

	s := newTestSelector(testPool(10), &fakeTitles{}, 11)
	counts := map[genre.Bucket]int{}
	for i := 0; i < 2000; i++ {
		c, err := s.Select(context.Background(), state.NewExclusions(15), genre.Weights{HipHop: 1, Metal: 9})
		require.NoError(t, err)
		counts[c.Bucket]++
	}
	assert.Greater(t, counts[genre.Metal], counts[genre.HipHop])
	assert.Zero(t, counts[genre.Rock])
	assert.NotZero(t, counts[genre.HipHop], "non-dominant buckets stay reachable")
}

func TestSelectHonorsExclusions(t *testing.T) {
	t.Parallel()

	s := newTestSelector(testPool(20), &fakeTitles{}, 5)
	ex := state.NewExclusions(15)
	ex.MarkPerformed("metal-3")

	for i := 0; i < 500; i++ {
		ring := ex.Ring()
		last := ex.LastPerformed()

		c, err := s.Select(context.Background(), ex, genre.Uniform())
		require.NoError(t, err)
		require.False(t, c.Fallback)

		assert.NotContains(t, ring, c.Artist)
		assert.NotEqual(t, strings.ToLower(last), strings.ToLower(c.Artist))
		assert.Equal(t, c.Artist, ex.Ring()[ex.Len()-1], "selection pushes the artist into the ring")
	}
}

func TestSelectFallbackOnExhaustion(t *testing.T) {
	t.Parallel()

	p := Pool{Rock: []string{"Only"}}
	s := newTestSelector(p, &fakeTitles{}, 9)
	ex := state.NewExclusions(15)
	ex.Push("Only")
	ex.MarkPerformed("Only")

	c, err := s.Select(context.Background(), ex, genre.Weights{Rock: 1})
	require.NoError(t, err)
	assert.True(t, c.Fallback)
	assert.Equal(t, "Only", c.Artist)
}

func TestSelectFallbackWidensBeforeBypassingExclusions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		exclude func(ex *state.Exclusions)
	}{
		{"weighted artist in ring", func(ex *state.Exclusions) { ex.Push("R") }},
		{"weighted artist just performed", func(ex *state.Exclusions) { ex.MarkPerformed("R") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := Pool{Rock: []string{"R"}, Metal: []string{"M"}}
			s := newTestSelector(p, &fakeTitles{}, 13)

			// Rock is the only weighted bucket and its one artist is excluded,
			// so the other buckets are used before any exclusion is bypassed.
			for i := 0; i < 100; i++ {
				ex := state.NewExclusions(15)
				tt.exclude(ex)
				c, err := s.Select(context.Background(), ex, genre.Weights{Rock: 1})
				require.NoError(t, err)
				require.True(t, c.Fallback)
				require.Equal(t, "M", c.Artist)
			}
		})
	}
}

func TestSelectRecyclesPlayedTitles(t *testing.T) {
	t.Parallel()

	p := Pool{Metal: []string{"Sleep"}}
	titles := &fakeTitles{byArtist: map[string][]string{"Sleep": {"Dragonaut", "Holy Mountain"}}}
	s := newTestSelector(p, titles, 21)
	ex := state.NewExclusions(15)

	first, err := s.Select(context.Background(), ex, genre.Uniform())
	require.NoError(t, err)
	second, err := s.Select(context.Background(), ex, genre.Uniform())
	require.NoError(t, err)

	assert.NotEqual(t, first.Title, second.Title, "second pick takes the remaining unplayed title")
	assert.Equal(t, 2, ex.PlayedCount("Sleep"))

	third, err := s.Select(context.Background(), ex, genre.Uniform())
	require.NoError(t, err)
	assert.Contains(t, []string{"Dragonaut", "Holy Mountain"}, third.Title)
	assert.Equal(t, 1, ex.PlayedCount("Sleep"), "played set was cleared then the new pick recorded")
}

func TestSelectNoTitles(t *testing.T) {
	t.Parallel()

	p := Pool{HipHop: []string{"Ghost"}}

	t.Run("empty listing", func(t *testing.T) {
		s := newTestSelector(p, &fakeTitles{byArtist: map[string][]string{"Ghost": {}}}, 1)
		ex := state.NewExclusions(15)

		_, err := s.Select(context.Background(), ex, genre.Uniform())
		assert.ErrorIs(t, err, ErrNoTitles)
		assert.Equal(t, []string{"Ghost"}, ex.Ring(), "artist stays spent")
	})

	t.Run("lookup failure", func(t *testing.T) {
		s := newTestSelector(p, &fakeTitles{fail: map[string]bool{"Ghost": true}}, 1)

		_, err := s.Select(context.Background(), state.NewExclusions(15), genre.Uniform())
		assert.ErrorIs(t, err, ErrNoTitles)
		assert.ErrorIs(t, err, lookup.ErrUnavailable)
	})
}

func TestSelectEmptyPool(t *testing.T) {
	t.Parallel()

	s := newTestSelector(Pool{}, &fakeTitles{}, 1)
	_, err := s.Select(context.Background(), state.NewExclusions(15), genre.Uniform())
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestCombineCopies(t *testing.T) {
	t.Parallel()

	s := newTestSelector(Pool{HipHop: []string{"h"}, Rock: []string{"r"}, Metal: []string{"m"}}, &fakeTitles{}, 1)

	count := func(entries []entry, b genre.Bucket) int {
		n := 0
		for _, e := range entries {
			if e.bucket == b {
				n++
			}
		}
		return n
	}

	got := s.combine(genre.Weights{HipHop: 1, Rock: 9})
	assert.Equal(t, 1, count(got, genre.HipHop), "small shares still get one copy")
	assert.Equal(t, 5, count(got, genre.Rock))
	assert.Zero(t, count(got, genre.Metal))
}
