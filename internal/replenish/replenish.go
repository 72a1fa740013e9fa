// Package replenish readies the next track by composing selection and
// catalog resolution under a bounded number of attempts.
package replenish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/justestif/go-stagehand/internal/catalog"
	"github.com/justestif/go-stagehand/internal/db"
	"github.com/justestif/go-stagehand/internal/genre"
	"github.com/justestif/go-stagehand/internal/lookup"
	"github.com/justestif/go-stagehand/internal/repertoire"
	"github.com/justestif/go-stagehand/internal/state"
)

// DefaultMaxAttempts is the default selection retry cap.
const DefaultMaxAttempts = 3

// ErrExhausted is returned when every attempt failed to produce a playable track.
var ErrExhausted = errors.New("no playable track after retries")

// Selector picks a candidate. *repertoire.Selector satisfies it.
type Selector interface {
	Select(ctx context.Context, ex *state.Exclusions, w genre.Weights) (repertoire.Candidate, error)
}

// Resolver resolves a candidate to a catalog entry. *catalog.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, artist, title string) (catalog.Entry, error)
}

// Queue receives the "set next track" effect.
type Queue interface {
	SetNextTrack(ctx context.Context, e catalog.Entry) error
}

// PlayRecorder persists queued tracks. *db.PlayRepository satisfies it.
type PlayRecorder interface {
	Record(ctx context.Context, p *db.Play) error
}

// Result describes a successful replenishment.
type Result struct {
	Candidate repertoire.Candidate
	Entry     catalog.Entry
	Attempts  int
}

// Replenisher composes a Selector and a Resolver.
type Replenisher struct {
	selector    Selector
	resolver    Resolver
	queue       Queue
	plays       PlayRecorder
	roomID      string
	maxAttempts int
	timeout     time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Replenisher.
type Option func(*Replenisher)

// WithMaxAttempts sets the attempt cap.
func WithMaxAttempts(n int) Option {
	return func(r *Replenisher) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithTimeout bounds each play-log write.
func WithTimeout(d time.Duration) Option {
	return func(r *Replenisher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Replenisher) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPlayLog records every queued track for the given room.
func WithPlayLog(rec PlayRecorder, roomID string) Option {
	return func(r *Replenisher) {
		r.plays = rec
		r.roomID = roomID
	}
}

// New creates a Replenisher.
func New(sel Selector, res Resolver, q Queue, opts ...Option) *Replenisher {
	r := &Replenisher{
		selector:    sel,
		resolver:    res,
		queue:       q,
		maxAttempts: DefaultMaxAttempts,
		timeout:     lookup.DefaultTimeout,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxAttempts returns the attempt cap.
func (r *Replenisher) MaxAttempts() int {
	return r.maxAttempts
}

// Replenish selects and resolves candidates until one is playable, sets it as
// the next track and records it as pending on rm. Each failed selection,
// resolution or queue effect consumes one attempt; an artist whose candidate
// failed stays in the exclusion ring. Returns ErrExhausted once the cap is
// spent and repertoire.ErrNoCandidate if the pool is empty.
func (r *Replenisher) Replenish(ctx context.Context, rm *state.Room, w genre.Weights) (Result, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempt - 1}, err
		}

		cand, err := r.selector.Select(ctx, rm.Exclusions, w)
		if err != nil {
			if errors.Is(err, repertoire.ErrNoCandidate) || ctx.Err() != nil {
				return Result{Attempts: attempt}, err
			}
			r.logger.Info("selection failed", "attempt", attempt, "error", err)
			continue
		}

		entry, err := r.resolver.Resolve(ctx, cand.Artist, cand.Title)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Attempts: attempt}, ctx.Err()
			}
			r.logger.Info("candidate not in catalog",
				"attempt", attempt, "artist", cand.Artist, "title", cand.Title, "error", err)
			continue
		}

		if err := r.queue.SetNextTrack(ctx, entry); err != nil {
			r.logger.Warn("set next track failed", "attempt", attempt, "artist", entry.Artist, "error", err)
			continue
		}

		queuedAt := r.now()
		rm.SetPending(state.Pending{
			Artist:   cand.Artist,
			Title:    cand.Title,
			Bucket:   cand.Bucket,
			Entry:    entry,
			QueuedAt: queuedAt,
		})
		r.recordPlay(ctx, cand, entry, attempt, queuedAt)

		r.logger.Info("queued next track",
			"artist", entry.Artist, "title", entry.Title, "bucket", cand.Bucket.String(), "attempt", attempt)
		return Result{Candidate: cand, Entry: entry, Attempts: attempt}, nil
	}

	return Result{Attempts: r.maxAttempts}, fmt.Errorf("%w (%d attempts)", ErrExhausted, r.maxAttempts)
}

func (r *Replenisher) recordPlay(ctx context.Context, cand repertoire.Candidate, e catalog.Entry, attempts int, at time.Time) {
	if r.plays == nil {
		return
	}
	play := &db.Play{
		RoomID:   r.roomID,
		Artist:   e.Artist,
		Title:    e.Title,
		Bucket:   cand.Bucket.String(),
		EntryID:  e.ID,
		Source:   e.Source,
		Attempts: attempts,
		QueuedAt: at,
	}
	_, err := lookup.Do(ctx, r.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.plays.Record(ctx, play)
	})
	if err != nil {
		// The track is already queued.
		r.logger.Warn("recording play", "artist", e.Artist, "error", err)
	}
}
