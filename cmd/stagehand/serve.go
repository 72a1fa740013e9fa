package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-stagehand/internal/config"
	"github.com/justestif/go-stagehand/internal/replenish"
	"github.com/justestif/go-stagehand/internal/room"
	"github.com/justestif/go-stagehand/internal/stage"
	"github.com/justestif/go-stagehand/internal/state"
	"github.com/justestif/go-stagehand/internal/vibe"
	"github.com/justestif/go-stagehand/internal/web"
	webfs "github.com/justestif/go-stagehand/web"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stage controller and the room-layer adapter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, c)
		},
	}

	flags := cmd.Flags()
	flags.String(config.KeyAddr, "127.0.0.1:8080", "listen address")
	flags.String(config.KeySelfID, "", "performer id of this bot in the room")
	flags.String(config.KeyRoomID, "default", "room id recorded in the play log")
	flags.Bool(config.KeyStartGlued, false, "start with automatic joins suppressed")
	flags.String(config.KeyDatabaseURL, "", "Postgres URL for the tag cache and play log")
	flags.String(config.KeyPoolFile, "", "curated artist pool (TOML or YAML)")

	return cmd
}

func runServe(ctx context.Context, c *cli) error {
	cfg, logger := c.cfg, c.logger

	a, cleanup, err := wireApp(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	store := room.NewStore(cfg.SelfID, cfg.HistorySize)
	rm := state.NewRoom(cfg.RingSize, cfg.StartGlued)
	hub := web.NewHub(logger)

	replOpts := []replenish.Option{
		replenish.WithMaxAttempts(cfg.RetryCap),
		replenish.WithTimeout(cfg.LookupTimeout),
		replenish.WithLogger(logger),
	}
	if a.db != nil {
		replOpts = append(replOpts, replenish.WithPlayLog(a.db.Plays(), cfg.RoomID))

		n, err := replenish.Restore(ctx, a.db.Plays(), cfg.RoomID, rm, cfg.LookupTimeout)
		if err != nil {
			logger.Warn("restoring exclusions", "error", err)
		} else {
			logger.Info("restored exclusions from play log", "plays", n)
		}
	}
	repl := replenish.New(a.selector, a.resolver, hub, replOpts...)

	analyzer := vibe.NewAnalyzer(a.tags, vibe.WithWindow(cfg.VibeWindow), vibe.WithLogger(logger))

	ctrl := stage.New(rm, store, analyzer, repl, hub,
		stage.WithConfig(stage.Config{
			LowThreshold:  cfg.LowThreshold,
			HighThreshold: cfg.HighThreshold,
			Cooldown:      cfg.Cooldown,
			TickInterval:  cfg.TickInterval,
		}),
		stage.WithLogger(logger),
	)

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:        cfg.Addr,
		SelfID:      cfg.SelfID,
		Store:       store,
		Controller:  ctrl,
		Hub:         hub,
		TemplatesFS: templates,
		StaticFS:    static,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
