package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/justestif/go-stagehand/internal/auth"
	"github.com/justestif/go-stagehand/internal/catalog"
	"github.com/justestif/go-stagehand/internal/config"
	"github.com/justestif/go-stagehand/internal/db"
	"github.com/justestif/go-stagehand/internal/lastfm"
	"github.com/justestif/go-stagehand/internal/repertoire"
	spotifycatalog "github.com/justestif/go-stagehand/internal/spotify"
	"github.com/justestif/go-stagehand/internal/tags"
)

// app holds the services shared by the subcommands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	lastfm   *lastfm.Client
	db       *db.DB
	tags     *tags.Service
	selector *repertoire.Selector
	resolver *catalog.Resolver
}

// wireApp builds the lookup, selection and catalog services. The returned
// cleanup closes the database pool, if one was opened.
func wireApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, func(), error) {
	a := &app{cfg: cfg, logger: logger}
	cleanup := func() {
		if a.db != nil {
			a.db.Close()
		}
	}

	lfm, err := newLastfmClient(cfg)
	if err != nil {
		return nil, cleanup, err
	}
	a.lastfm = lfm

	var fetcher tags.TagFetcher = lfm
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to database: %w", err)
		}
		a.db = database

		version, err := database.Migrate(ctx)
		if err != nil {
			return nil, cleanup, fmt.Errorf("migrating database: %w", err)
		}
		logger.Info("database ready", "version", version)

		pruned, err := database.Tags().DeleteStale(ctx, time.Now().Add(-tags.CacheTTL))
		if err != nil {
			logger.Warn("pruning tag cache", "error", err)
		} else if pruned > 0 {
			logger.Info("pruned tag cache", "rows", pruned)
		}
		fetcher = tags.NewCachedTagFetcher(database.Tags(), lfm, logger)
	}
	a.tags = tags.NewService(fetcher,
		tags.WithTimeout(cfg.LookupTimeout),
		tags.WithLogger(logger),
	)

	pool := repertoire.DefaultPool()
	if cfg.PoolFile != "" {
		pool, err = repertoire.LoadPool(cfg.PoolFile)
		if err != nil {
			return nil, cleanup, fmt.Errorf("loading pool: %w", err)
		}
	}
	a.selector = repertoire.NewSelector(pool, lfm,
		repertoire.WithOversample(cfg.Oversample),
		repertoire.WithTimeout(cfg.LookupTimeout),
		repertoire.WithLogger(logger),
	)

	searcher, err := newSearcher(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	a.resolver = catalog.NewResolver(searcher,
		catalog.WithLimits(cfg.CatalogLimit, cfg.CatalogArtistLimit),
		catalog.WithTimeout(cfg.LookupTimeout),
		catalog.WithLogger(logger),
	)

	return a, cleanup, nil
}

func newLastfmClient(cfg config.Config) (*lastfm.Client, error) {
	c, err := lastfm.New(lastfm.Config{APIKey: cfg.LastfmAPIKey, Timeout: cfg.LookupTimeout})
	if err != nil {
		return nil, fmt.Errorf("last.fm (set LASTFM_API_KEY or --lastfm-api-key): %w", err)
	}
	return c, nil
}

func newSearcher(ctx context.Context, cfg config.Config, logger *slog.Logger) (catalog.Searcher, error) {
	switch cfg.CatalogBackend {
	case config.BackendSpotify:
		authenticator, err := auth.New(auth.Config{
			ClientID:     cfg.SpotifyID,
			ClientSecret: cfg.SpotifySecret,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("spotify auth: %w", err)
		}
		if _, err := authenticator.Token(ctx); err != nil {
			return nil, fmt.Errorf("spotify token: %w", err)
		}
		return spotifycatalog.New(authenticator.Client(ctx), spotifycatalog.WithMarket(cfg.SpotifyMarket)), nil
	case config.BackendRoom, "":
		return catalog.NewRoomSearcher(catalog.RoomConfig{
			URL:     cfg.CatalogURL,
			Token:   cfg.CatalogToken,
			Timeout: cfg.LookupTimeout,
		}), nil
	default:
		return nil, errors.New("unknown catalog backend " + cfg.CatalogBackend)
	}
}
