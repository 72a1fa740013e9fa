// Package stage decides when self occupies the room's stage. It joins only
// with a track already queued, yields the seat once enough humans are
// performing and self has played at least once, and honors a manual glue
// override.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justestif/go-stagehand/internal/genre"
	"github.com/justestif/go-stagehand/internal/replenish"
	"github.com/justestif/go-stagehand/internal/room"
	"github.com/justestif/go-stagehand/internal/state"
)

// Defaults for Config.
const (
	DefaultLowThreshold  = 3
	DefaultHighThreshold = 3
	DefaultCooldown      = 2 * time.Minute
	DefaultTickInterval  = 10 * time.Second
	DefaultGrace         = 30 * time.Second
)

// ErrTransitionDeferred is returned when a join was due but no track could be
// readied, or the join effect failed. The join is retried on a later tick.
var ErrTransitionDeferred = errors.New("stage transition deferred")

// Effects issues stage mutations to the room. Calls are fire-and-forget.
type Effects interface {
	RequestJoinStage(ctx context.Context) error
	RequestLeaveStage(ctx context.Context) error
}

// VibeAnalyzer computes genre weights from a snapshot. *vibe.Analyzer satisfies it.
type VibeAnalyzer interface {
	Analyze(ctx context.Context, snap room.Snapshot) genre.Weights
}

// Replenisher readies the next track. *replenish.Replenisher satisfies it.
type Replenisher interface {
	Replenish(ctx context.Context, rm *state.Room, w genre.Weights) (replenish.Result, error)
}

// Config holds the stage thresholds and timings.
type Config struct {
	// LowThreshold is the performer count at or below which self joins.
	LowThreshold int
	// HighThreshold is the human performer count at or above which self leaves.
	HighThreshold int
	// Cooldown is the minimum time between an automatic leave and the next join.
	Cooldown     time.Duration
	TickInterval time.Duration
	// Grace is how long after a transition the controller trusts its own
	// status over a snapshot that disagrees with it.
	Grace time.Duration
}

// DefaultConfig returns the default stage configuration.
func DefaultConfig() Config {
	return Config{
		LowThreshold:  DefaultLowThreshold,
		HighThreshold: DefaultHighThreshold,
		Cooldown:      DefaultCooldown,
		TickInterval:  DefaultTickInterval,
		Grace:         DefaultGrace,
	}
}

// Controller is the per-room stage state machine.
type Controller struct {
	cfg         Config
	room        *state.Room
	observer    room.Observer
	vibe        VibeAnalyzer
	replenisher Replenisher
	effects     Effects
	logger      *slog.Logger
	now         func() time.Time

	// mu guards room.Stage and changedAt.
	mu        sync.Mutex
	changedAt time.Time
	// busy is set while a selection pipeline is in flight.
	busy atomic.Bool

	kick chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets thresholds and timings. Non-positive values keep defaults.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		if cfg.LowThreshold > 0 {
			c.cfg.LowThreshold = cfg.LowThreshold
		}
		if cfg.HighThreshold > 0 {
			c.cfg.HighThreshold = cfg.HighThreshold
		}
		if cfg.Cooldown > 0 {
			c.cfg.Cooldown = cfg.Cooldown
		}
		if cfg.TickInterval > 0 {
			c.cfg.TickInterval = cfg.TickInterval
		}
		if cfg.Grace > 0 {
			c.cfg.Grace = cfg.Grace
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Controller that owns rm.
func New(rm *state.Room, obs room.Observer, v VibeAnalyzer, r Replenisher, fx Effects, opts ...Option) *Controller {
	c := &Controller{
		cfg:         DefaultConfig(),
		room:        rm,
		observer:    obs,
		vibe:        v,
		replenisher: r,
		effects:     fx,
		logger:      slog.Default(),
		now:         time.Now,
		kick:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate runs one pass of the state machine against the latest snapshot.
// It returns nil immediately if another pass is already in flight.
func (c *Controller) Evaluate(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug("evaluation coalesced")
		return nil
	}
	defer c.busy.Store(false)

	snap := c.observer.Snapshot()
	c.reconcile(snap)

	c.mu.Lock()
	st := c.room.Stage
	c.mu.Unlock()

	if st.Status == state.StageOn {
		return c.evaluateOn(ctx, snap, st)
	}
	return c.evaluateOff(ctx, snap, st)
}

// reconcile aligns the stage status with what the room reports. A transition
// is trusted for Grace before a disagreeing snapshot is believed.
func (c *Controller) reconcile(snap room.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.changedAt.IsZero() && c.now().Sub(c.changedAt) < c.cfg.Grace {
		return
	}

	onStage := snap.IsOnStage()
	switch {
	case c.room.Stage.Status == state.StageOff && onStage:
		c.logger.Info("self found on stage", "performers", snap.PerformerCount())
		c.markOnLocked()
	case c.room.Stage.Status == state.StageOn && !onStage:
		c.logger.Info("self no longer on stage", "performers", snap.PerformerCount())
		c.markOffLocked()
	}
}

func (c *Controller) evaluateOff(ctx context.Context, snap room.Snapshot, st state.Stage) error {
	if st.Glued {
		return nil
	}
	if n := snap.PerformerCount(); n > c.cfg.LowThreshold {
		return nil
	}
	if !st.LastAutoLeave.IsZero() && c.now().Sub(st.LastAutoLeave) < c.cfg.Cooldown {
		return nil
	}

	w := c.vibe.Analyze(ctx, snap)
	res, err := c.replenisher.Replenish(ctx, c.room, w)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Info("join deferred", "performers", snap.PerformerCount(), "reason", err)
		return fmt.Errorf("%w: %w", ErrTransitionDeferred, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Glue may have been set while the pipeline ran.
	if c.room.Stage.Glued {
		return nil
	}
	if err := c.effects.RequestJoinStage(ctx); err != nil {
		c.logger.Warn("join request failed", "error", err)
		return fmt.Errorf("%w: requesting join: %w", ErrTransitionDeferred, err)
	}
	c.markOnLocked()
	c.logger.Info("joined stage",
		"performers", snap.PerformerCount(), "artist", res.Entry.Artist, "title", res.Entry.Title)
	return nil
}

func (c *Controller) evaluateOn(ctx context.Context, snap room.Snapshot, st state.Stage) error {
	if st.Glued {
		return c.leave(ctx, false, "glued")
	}

	humans := snap.HumanPerformerCount()
	if humans >= c.cfg.HighThreshold && st.SongsSinceJoin >= 1 {
		return c.leave(ctx, true, "making room")
	}

	if _, ok := c.room.Pending(); ok {
		return nil
	}

	// On stage with nothing queued.
	w := c.vibe.Analyze(ctx, snap)
	if _, err := c.replenisher.Replenish(ctx, c.room, w); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("on-stage backup failed", "humans", humans, "error", err)
	}
	return nil
}

// leave requests a leave and updates the status. An automatic leave arms the
// cooldown.
func (c *Controller) leave(ctx context.Context, auto bool, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaveLocked(ctx, auto, reason)
}

func (c *Controller) leaveLocked(ctx context.Context, auto bool, reason string) error {
	if c.room.Stage.Status != state.StageOn {
		return nil
	}
	if err := c.effects.RequestLeaveStage(ctx); err != nil {
		c.logger.Warn("leave request failed", "reason", reason, "error", err)
		return fmt.Errorf("requesting leave: %w", err)
	}
	songs := c.room.Stage.SongsSinceJoin
	c.markOffLocked()
	if auto {
		c.room.Stage.LastAutoLeave = c.now()
	}
	c.logger.Info("left stage", "reason", reason, "songs", songs)
	return nil
}

func (c *Controller) markOnLocked() {
	c.changedAt = c.now()
	c.room.Stage.Status = state.StageOn
	c.room.Stage.JoinedAt = c.now()
	c.room.Stage.SongsSinceJoin = 0
}

func (c *Controller) markOffLocked() {
	c.changedAt = c.now()
	c.room.Stage.Status = state.StageOff
	c.room.Stage.SongsSinceJoin = 0
	c.room.Stage.JoinedAt = time.Time{}
	c.room.ClearPending()
}

// SetGlued sets the manual override. Gluing while on stage leaves at once.
func (c *Controller) SetGlued(ctx context.Context, glued bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.room.Stage.Glued != glued {
		c.logger.Info("glue changed", "glued", glued)
	}
	c.room.Stage.Glued = glued
	if glued {
		return c.leaveLocked(ctx, false, "glued")
	}
	return nil
}

func (c *Controller) apply(e room.Event) {
	selfID := c.observer.Snapshot().SelfID
	if selfID == "" || e.PerformerID != selfID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Kind {
	case room.EventPerformerJoined:
		if c.room.Stage.Status == state.StageOff {
			c.markOnLocked()
		}
	case room.EventPerformerLeft:
		if c.room.Stage.Status == state.StageOn {
			c.logger.Info("removed from stage")
			c.markOffLocked()
		}
	case room.EventTrackStarted:
		if e.Track.Artist != "" {
			c.room.Exclusions.MarkPerformed(e.Track.Artist)
		}
		c.room.ClearPending()
		c.logger.Debug("self track started", "artist", e.Track.Artist, "title", e.Track.Title)
	case room.EventTrackFinished:
		if c.room.Stage.Status == state.StageOn {
			c.room.Stage.SongsSinceJoin++
		}
	}
}

// Status is a point-in-time view of the controller.
type Status struct {
	Stage          string         `json:"stage"`
	Glued          bool           `json:"glued"`
	SongsSinceJoin int            `json:"songsSinceJoin"`
	LastAutoLeave  *time.Time     `json:"lastAutoLeave,omitempty"`
	CooldownLeft   time.Duration  `json:"cooldownLeftNs"`
	Pending        *state.Pending `json:"pending,omitempty"`
	Ring           []string       `json:"ring"`
	LastPerformed  string         `json:"lastPerformed,omitempty"`
	Busy           bool           `json:"busy"`
}

// Status returns the current stage state, queued track and exclusions.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := c.room.Stage
	c.mu.Unlock()

	s := Status{
		Stage:          st.Status.String(),
		Glued:          st.Glued,
		SongsSinceJoin: st.SongsSinceJoin,
		Ring:           c.room.Exclusions.Ring(),
		LastPerformed:  c.room.Exclusions.LastPerformed(),
		Busy:           c.busy.Load(),
	}
	if !st.LastAutoLeave.IsZero() {
		t := st.LastAutoLeave
		s.LastAutoLeave = &t
		if left := c.cfg.Cooldown - c.now().Sub(t); left > 0 {
			s.CooldownLeft = left
		}
	}
	if p, ok := c.room.Pending(); ok {
		s.Pending = &p
	}
	return s
}
