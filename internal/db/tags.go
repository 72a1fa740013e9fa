package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TagRepository handles cached tag operations.
type TagRepository struct {
	pool *pgxpool.Pool
}

// UpsertBatch inserts or updates multiple tags in one statement.
func (r *TagRepository) UpsertBatch(ctx context.Context, tags []TrackTag) error {
	if len(tags) == 0 {
		return nil
	}

	query := `
		INSERT INTO track_tags (track_key, tag_name, tag_count, source, fetched_at)
		SELECT * FROM unnest($1::text[], $2::text[], $3::int[], $4::text[], $5::timestamptz[])
		ON CONFLICT (track_key, tag_name) DO UPDATE SET
			tag_count = EXCLUDED.tag_count,
			source = EXCLUDED.source,
			fetched_at = EXCLUDED.fetched_at
	`

	keys := make([]string, len(tags))
	names := make([]string, len(tags))
	counts := make([]int, len(tags))
	sources := make([]string, len(tags))
	fetchedAts := make([]time.Time, len(tags))

	for i, t := range tags {
		keys[i] = t.TrackKey
		names[i] = t.TagName
		counts[i] = t.TagCount
		sources[i] = t.Source
		fetchedAts[i] = t.FetchedAt
	}

	if _, err := r.pool.Exec(ctx, query, keys, names, counts, sources, fetchedAts); err != nil {
		return fmt.Errorf("batch upserting tags: %w", err)
	}
	return nil
}

// GetForKeys retrieves tags for multiple tracks, keyed by track key.
// Tags for each key are ordered by count, highest first.
func (r *TagRepository) GetForKeys(ctx context.Context, keys []string) (map[string][]TrackTag, error) {
	if len(keys) == 0 {
		return make(map[string][]TrackTag), nil
	}

	query := `
		SELECT track_key, tag_name, tag_count, source, fetched_at
		FROM track_tags
		WHERE track_key = ANY($1)
		ORDER BY track_key, tag_count DESC
	`
	rows, err := r.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("querying track tags: %w", err)
	}

	tags, err := pgx.CollectRows(rows, scanTrackTag)
	if err != nil {
		return nil, fmt.Errorf("scanning tags: %w", err)
	}

	result := make(map[string][]TrackTag, len(keys))
	for _, tag := range tags {
		result[tag.TrackKey] = append(result[tag.TrackKey], tag)
	}
	return result, nil
}

// DeleteStale removes tags fetched before the given time and returns how many
// rows were deleted.
func (r *TagRepository) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM track_tags WHERE fetched_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("deleting stale tags: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTrackTag(row pgx.CollectableRow) (TrackTag, error) {
	var tag TrackTag
	err := row.Scan(&tag.TrackKey, &tag.TagName, &tag.TagCount, &tag.Source, &tag.FetchedAt)
	return tag, err
}
