package replenish

import (
	"context"
	"fmt"
	"time"

	"github.com/justestif/go-stagehand/internal/db"
	"github.com/justestif/go-stagehand/internal/lookup"
	"github.com/justestif/go-stagehand/internal/state"
)

// PlayHistory lists logged plays, newest first. *db.PlayRepository satisfies it.
type PlayHistory interface {
	Recent(ctx context.Context, roomID string, limit int) ([]db.Play, error)
}

// Restore seeds the exclusion ring and played sets of rm from the play log,
// so a restarted process does not repeat its latest picks. It returns the
// number of plays applied. The read is bounded by timeout; a non-positive
// timeout uses lookup.DefaultTimeout.
func Restore(ctx context.Context, h PlayHistory, roomID string, rm *state.Room, timeout time.Duration) (int, error) {
	plays, err := lookup.Do(ctx, timeout, func(ctx context.Context) ([]db.Play, error) {
		return h.Recent(ctx, roomID, rm.Exclusions.Cap())
	})
	if err != nil {
		return 0, fmt.Errorf("loading recent plays: %w", err)
	}

	for i := len(plays) - 1; i >= 0; i-- {
		p := plays[i]
		rm.Exclusions.Push(p.Artist)
		rm.Exclusions.MarkPlayed(p.Artist, p.Title)
	}
	return len(plays), nil
}
