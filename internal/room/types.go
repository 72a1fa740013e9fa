// Package room holds the canonical view of a shared listening room: who is on
// stage, what is playing, and what humans have played recently.
package room

import (
	"strings"
	"time"
)

// DefaultHistorySize is the number of play events kept per room.
const DefaultHistorySize = 50

// Track identifies a song by artist and title.
type Track struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// IsZero reports whether the track carries no artist and no title.
func (t Track) IsZero() bool {
	return strings.TrimSpace(t.Artist) == "" && strings.TrimSpace(t.Title) == ""
}

// Performer is an occupant of the stage.
type Performer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// PlayEvent records a single play in the room.
type PlayEvent struct {
	Artist          string    `json:"artist"`
	Title           string    `json:"title"`
	PerformerID     string    `json:"performerId"`
	Timestamp       time.Time `json:"timestamp"`
	IsSelfPerformed bool      `json:"isSelfPerformed"`
}

// Track returns the artist/title pair of the event.
func (e PlayEvent) Track() Track {
	return Track{Artist: e.Artist, Title: e.Title}
}

// Snapshot is a read-only view of the room at one point in time.
type Snapshot struct {
	CurrentTrack *Track `json:"currentTrack,omitempty"`
	// CurrentPerformerID is the performer whose track is playing, if known.
	CurrentPerformerID string      `json:"currentPerformerId,omitempty"`
	Performers         []Performer `json:"performers"`
	SelfID             string      `json:"selfId"`
	// RecentHumanPlays is ordered oldest first.
	RecentHumanPlays []PlayEvent `json:"recentHumanPlays"`
}

// IsOnStage reports whether the self performer currently occupies the stage.
func (s Snapshot) IsOnStage() bool {
	return s.hasPerformer(s.SelfID)
}

// PerformerCount returns the number of performers on stage, self included.
func (s Snapshot) PerformerCount() int {
	return len(s.Performers)
}

// HumanPerformerCount returns the number of performers on stage excluding self.
func (s Snapshot) HumanPerformerCount() int {
	n := 0
	for _, p := range s.Performers {
		if p.ID != s.SelfID {
			n++
		}
	}
	return n
}

// CurrentHumanTrack returns the playing track when a human performer plays it.
func (s Snapshot) CurrentHumanTrack() (Track, bool) {
	if s.CurrentTrack == nil || s.CurrentTrack.IsZero() {
		return Track{}, false
	}
	if s.CurrentPerformerID != "" && s.CurrentPerformerID == s.SelfID {
		return Track{}, false
	}
	return *s.CurrentTrack, true
}

func (s Snapshot) hasPerformer(id string) bool {
	if id == "" {
		return false
	}
	for _, p := range s.Performers {
		if p.ID == id {
			return true
		}
	}
	return false
}

// EventKind enumerates discrete room events.
type EventKind int

const (
	EventPerformerJoined EventKind = iota // Performer stepped on stage
	EventPerformerLeft                    // Performer left the stage
	EventTrackStarted                     // A track began playing
	EventTrackFinished                    // A track finished playing
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventPerformerJoined:
		return "performer_joined"
	case EventPerformerLeft:
		return "performer_left"
	case EventTrackStarted:
		return "track_started"
	case EventTrackFinished:
		return "track_finished"
	default:
		return "unknown"
	}
}

// ParseEventKind maps a wire name back to an EventKind.
func ParseEventKind(s string) (EventKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "performer_joined", "dj_added", "adddj":
		return EventPerformerJoined, true
	case "performer_left", "dj_removed", "removedj":
		return EventPerformerLeft, true
	case "track_started", "song_started", "playedsong":
		return EventTrackStarted, true
	case "track_finished", "song_finished", "songended":
		return EventTrackFinished, true
	default:
		return 0, false
	}
}

// Event is a discrete room occurrence delivered by the room layer.
type Event struct {
	Kind        EventKind
	PerformerID string
	Track       Track
	At          time.Time
}
