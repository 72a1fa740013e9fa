package replenish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-stagehand/internal/db"
	"github.com/justestif/go-stagehand/internal/lookup"
	"github.com/justestif/go-stagehand/internal/state"
)

type fakeHistory struct {
	plays    []db.Play
	err      error
	gotRoom  string
	gotLimit int
}

func (f *fakeHistory) Recent(_ context.Context, roomID string, limit int) ([]db.Play, error) {
	f.gotRoom, f.gotLimit = roomID, limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.plays) > limit {
		return f.plays[:limit], nil
	}
	return f.plays, nil
}

func TestRestore(t *testing.T) {
	t.Parallel()

	h := &fakeHistory{plays: []db.Play{
		{Artist: "Mastodon", Title: "Blood and Thunder"},
		{Artist: "Run the Jewels", Title: "Legend Has It"},
		{Artist: "Fugazi", Title: "Waiting Room"},
	}}
	rm := state.NewRoom(2, false)

	n, err := Restore(context.Background(), h, "lounge", rm, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, "lounge", h.gotRoom)
	assert.Equal(t, 2, h.gotLimit)
	assert.Equal(t, []string{"Run the Jewels", "Mastodon"}, rm.Exclusions.Ring(), "oldest first, newest last")
	assert.True(t, rm.Exclusions.Played("mastodon", "blood and thunder"))
	assert.Empty(t, rm.Exclusions.LastPerformed())
}

func TestRestoreError(t *testing.T) {
	t.Parallel()

	rm := state.NewRoom(5, false)
	_, err := Restore(context.Background(), &fakeHistory{err: errors.New("db down")}, "lounge", rm, 0)
	assert.Error(t, err)
	assert.Zero(t, rm.Exclusions.Len())
}

type stalledHistory struct{}

func (stalledHistory) Recent(ctx context.Context, _ string, _ int) ([]db.Play, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRestoreStalledHistoryIsBounded(t *testing.T) {
	t.Parallel()

	rm := state.NewRoom(5, false)
	start := time.Now()
	_, err := Restore(context.Background(), stalledHistory{}, "lounge", rm, 20*time.Millisecond)

	assert.ErrorIs(t, err, lookup.ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Zero(t, rm.Exclusions.Len())
}
