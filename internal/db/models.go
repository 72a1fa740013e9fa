package db

import (
	"time"

	"github.com/google/uuid"
)

// TrackTag is a cached Last.fm tag for a track, keyed by the normalized
// "artist|title" pair.
type TrackTag struct {
	TrackKey  string
	TagName   string
	TagCount  int
	Source    string // "track" or "artist"
	FetchedAt time.Time
}

// Play is a track the orchestrator queued for a room.
type Play struct {
	ID       uuid.UUID
	RoomID   string
	Artist   string
	Title    string
	Bucket   string
	EntryID  string
	Source   string
	Attempts int
	QueuedAt time.Time
}
