package tags

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/justestif/go-stagehand/internal/db"
	"github.com/justestif/go-stagehand/internal/lastfm"
)

// CacheTTL is the duration after which cached tags are considered stale.
const CacheTTL = 30 * 24 * time.Hour // 30 days

// TagStore persists tags by track key. *db.TagRepository satisfies it.
type TagStore interface {
	GetForKeys(ctx context.Context, keys []string) (map[string][]db.TrackTag, error)
	UpsertBatch(ctx context.Context, tags []db.TrackTag) error
}

// CachedTagFetcher implements TagFetcher with database persistence.
// It checks the store first, then falls back to the underlying fetcher for
// misses and stale entries, persisting new results.
type CachedTagFetcher struct {
	store  TagStore
	next   TagFetcher
	logger *slog.Logger
	now    func() time.Time
}

// NewCachedTagFetcher wraps next with a persistent cache.
func NewCachedTagFetcher(store TagStore, next TagFetcher, logger *slog.Logger) *CachedTagFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedTagFetcher{
		store:  store,
		next:   next,
		logger: logger,
		now:    time.Now,
	}
}

// GetTags returns cached tags when fresh, otherwise fetches and persists them.
// Store failures are logged and never fail the lookup.
func (c *CachedTagFetcher) GetTags(ctx context.Context, artist, track string) ([]lastfm.Tag, error) {
	key := TrackKey(artist, track)

	cached, err := c.store.GetForKeys(ctx, []string{key})
	if err != nil {
		c.logger.Warn("reading tag cache", "key", key, "error", err)
	} else if rows := cached[key]; len(rows) > 0 && !c.isStale(rows[0].FetchedAt) {
		return dbTagsToLastfmTags(rows), nil
	}

	tags, err := c.next.GetTags(ctx, artist, track)
	if err != nil {
		return nil, fmt.Errorf("fetching tags: %w", err)
	}

	if len(tags) > 0 {
		if err := c.store.UpsertBatch(ctx, lastfmTagsToDBTags(key, tags, c.now())); err != nil {
			c.logger.Warn("persisting tags", "key", key, "error", err)
		}
	}
	return tags, nil
}

// Lazy invalidation: stale rows are refetched and overwritten on read.
func (c *CachedTagFetcher) isStale(fetchedAt time.Time) bool {
	return fetchedAt.Before(c.now().Add(-CacheTTL))
}

func lastfmTagsToDBTags(key string, tags []lastfm.Tag, now time.Time) []db.TrackTag {
	rows := make([]db.TrackTag, len(tags))
	for i, tag := range tags {
		rows[i] = db.TrackTag{
			TrackKey:  key,
			TagName:   tag.Name,
			TagCount:  tag.Count,
			Source:    string(SourceTrack),
			FetchedAt: now,
		}
	}
	return rows
}

// dbTagsToLastfmTags converts database TrackTag slice to lastfm.Tag slice.
func dbTagsToLastfmTags(dbTags []db.TrackTag) []lastfm.Tag {
	tags := make([]lastfm.Tag, len(dbTags))
	for i, t := range dbTags {
		tags[i] = lastfm.Tag{
			Name:  t.TagName,
			Count: t.TagCount,
		}
	}
	return tags
}
