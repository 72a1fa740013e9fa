package stage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/justestif/go-stagehand/internal/room"
)

// Notify applies a room event to the stage bookkeeping immediately and
// requests an evaluation. It never blocks on the evaluation itself.
func (c *Controller) Notify(e room.Event) {
	c.apply(e)
	c.Trigger()
}

// Trigger requests an evaluation outside the tick schedule. Repeated
// triggers before Run picks one up collapse into one.
func (c *Controller) Trigger() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Run drives the controller on a ticker plus triggers until ctx is
// cancelled. Evaluations run in the background; a tick or trigger that arrives
// while one is in flight does not start a second one.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	evaluate := func() {
		if c.busy.Load() {
			c.logger.Debug("pipeline in flight, skipping")
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.logResult(ctx, c.Evaluate(ctx))
		}()
	}

	c.logger.Info("stage controller started",
		"tick", c.cfg.TickInterval,
		"low", c.cfg.LowThreshold,
		"high", c.cfg.HighThreshold,
		"cooldown", c.cfg.Cooldown,
	)
	evaluate()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stage controller stopping")
			return ctx.Err()
		case <-ticker.C:
			evaluate()
		case <-c.kick:
			evaluate()
		}
	}
}

func (c *Controller) logResult(ctx context.Context, err error) {
	switch {
	case err == nil:
	case ctx.Err() != nil:
	case errors.Is(err, ErrTransitionDeferred):
		c.logger.Debug("evaluation deferred", "error", err)
	default:
		c.logger.Warn("evaluation failed", "error", err)
	}
}
