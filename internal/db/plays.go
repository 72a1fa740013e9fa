package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlayRepository records queued tracks.
type PlayRepository struct {
	pool *pgxpool.Pool
}

// Record inserts a play, assigning an ID and timestamp when unset.
func (r *PlayRepository) Record(ctx context.Context, p *Play) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.QueuedAt.IsZero() {
		p.QueuedAt = time.Now()
	}

	query := `
		INSERT INTO plays (id, room_id, artist, title, bucket, entry_id, source, attempts, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.RoomID, p.Artist, p.Title, p.Bucket, p.EntryID, p.Source, p.Attempts, p.QueuedAt)
	if err != nil {
		return fmt.Errorf("inserting play: %w", err)
	}
	return nil
}

// Recent returns the most recent plays for a room, newest first.
func (r *PlayRepository) Recent(ctx context.Context, roomID string, limit int) ([]Play, error) {
	query := `
		SELECT id, room_id, artist, title, bucket, entry_id, source, attempts, queued_at
		FROM plays
		WHERE room_id = $1
		ORDER BY queued_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying plays: %w", err)
	}

	plays, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Play, error) {
		var p Play
		err := row.Scan(&p.ID, &p.RoomID, &p.Artist, &p.Title, &p.Bucket, &p.EntryID, &p.Source, &p.Attempts, &p.QueuedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning plays: %w", err)
	}
	return plays, nil
}
