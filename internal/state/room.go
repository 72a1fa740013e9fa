package state

import (
	"sync"
	"time"

	"github.com/justestif/go-stagehand/internal/catalog"
	"github.com/justestif/go-stagehand/internal/genre"
)

// StageStatus is whether self occupies the stage.
type StageStatus int

const (
	StageOff StageStatus = iota
	StageOn
)

// String returns "off" or "on".
func (s StageStatus) String() string {
	if s == StageOn {
		return "on"
	}
	return "off"
}

// Stage is the stage controller's bookkeeping. It is mutated only by the
// stage controller, which guards it with its own lock.
type Stage struct {
	Status StageStatus
	// LastAutoLeave is when self last left the stage on its own; zero if never.
	LastAutoLeave time.Time
	// Glued suppresses automatic joins and forces a leave while set.
	Glued bool
	// SongsSinceJoin counts self-performed tracks completed since joining.
	SongsSinceJoin int
	JoinedAt       time.Time
}

// Pending is the track most recently sent to the queue.
type Pending struct {
	Artist   string        `json:"artist"`
	Title    string        `json:"title"`
	Bucket   genre.Bucket  `json:"bucket"`
	Entry    catalog.Entry `json:"entry"`
	QueuedAt time.Time     `json:"queuedAt"`
}

// Room is the single owned state object for one room.
type Room struct {
	Exclusions *Exclusions
	Stage      Stage

	mu      sync.RWMutex
	pending *Pending
}

// NewRoom creates a Room with an exclusion ring of the given size.
func NewRoom(ringSize int, glued bool) *Room {
	return &Room{
		Exclusions: NewExclusions(ringSize),
		Stage:      Stage{Glued: glued},
	}
}

// SetPending records the queued track.
func (r *Room) SetPending(p Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = &p
}

// Pending returns the queued track, if any.
func (r *Room) Pending() (Pending, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pending == nil {
		return Pending{}, false
	}
	return *r.pending, true
}

// ClearPending forgets the queued track.
func (r *Room) ClearPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
}
