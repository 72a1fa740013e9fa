package room

import (
	"sync"
	"time"
)

// Observer exposes the latest room snapshot.
type Observer interface {
	Snapshot() Snapshot
}

// Store holds the latest snapshot for a room and records a play event each
// time the current track changes.
type Store struct {
	mu      sync.RWMutex
	selfID  string
	current Snapshot
	history *History
	now     func() time.Time
}

// NewStore creates a Store for the given self performer ID.
func NewStore(selfID string, historySize int) *Store {
	return &Store{
		selfID:  selfID,
		current: Snapshot{SelfID: selfID},
		history: NewHistory(historySize),
		now:     time.Now,
	}
}

// Update replaces the current snapshot. When the playing track differs from
// the previous one, a PlayEvent is recorded. Recent human plays are taken
// from the update when the room layer provides them, otherwise from the
// store's own history.
func (s *Store) Update(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(snap)
}

// Apply folds a discrete event into the current snapshot: performers join or
// leave the stage and started tracks become the current track.
func (s *Store) Apply(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	switch e.Kind {
	case EventPerformerJoined:
		if e.PerformerID == "" || s.current.hasPerformer(e.PerformerID) {
			return
		}
		next.Performers = append(append([]Performer(nil), s.current.Performers...), Performer{ID: e.PerformerID})
	case EventPerformerLeft:
		next.Performers = make([]Performer, 0, len(s.current.Performers))
		for _, p := range s.current.Performers {
			if p.ID != e.PerformerID {
				next.Performers = append(next.Performers, p)
			}
		}
	case EventTrackStarted:
		if e.Track.IsZero() {
			return
		}
		t := e.Track
		next.CurrentTrack = &t
		next.CurrentPerformerID = e.PerformerID
	default:
		return
	}
	s.replaceLocked(next)
}

func (s *Store) replaceLocked(snap Snapshot) {
	snap.SelfID = s.selfID

	if snap.CurrentTrack != nil && !snap.CurrentTrack.IsZero() && !sameTrack(s.current, snap) {
		s.history.Push(PlayEvent{
			Artist:          snap.CurrentTrack.Artist,
			Title:           snap.CurrentTrack.Title,
			PerformerID:     snap.CurrentPerformerID,
			Timestamp:       s.now(),
			IsSelfPerformed: snap.CurrentPerformerID != "" && snap.CurrentPerformerID == s.selfID,
		})
	}

	s.current = snap
}

// Snapshot returns a copy of the latest snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.current
	snap.Performers = append([]Performer(nil), s.current.Performers...)
	if s.current.CurrentTrack != nil {
		t := *s.current.CurrentTrack
		snap.CurrentTrack = &t
	}
	if len(s.current.RecentHumanPlays) > 0 {
		snap.RecentHumanPlays = append([]PlayEvent(nil), s.current.RecentHumanPlays...)
	} else {
		snap.RecentHumanPlays = s.history.Humans(0)
	}
	return snap
}

// History returns up to n of the newest recorded events, oldest first.
func (s *Store) History(n int) []PlayEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Recent(n)
}

func sameTrack(prev, next Snapshot) bool {
	if prev.CurrentTrack == nil || next.CurrentTrack == nil {
		return false
	}
	return *prev.CurrentTrack == *next.CurrentTrack && prev.CurrentPerformerID == next.CurrentPerformerID
}
