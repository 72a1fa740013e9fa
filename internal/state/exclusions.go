// Package state holds the per-room orchestration state: anti-repetition
// bookkeeping, stage flags and the pending queued track.
package state

import (
	"strings"
	"sync"
)

// DefaultRingSize is the default number of recently selected artists excluded
// from selection.
const DefaultRingSize = 15

// Exclusions tracks recently selected artists, played titles per artist and
// the artist most recently performed by self. It is safe for concurrent use.
type Exclusions struct {
	mu                sync.Mutex
	ring              []string // normalized artist keys, oldest first
	names             []string // display names, parallel to ring
	size              int
	played            map[string]map[string]struct{}
	lastPerformed     string
	lastPerformedName string
}

// NewExclusions creates an Exclusions with the given ring capacity.
// A non-positive size uses DefaultRingSize.
func NewExclusions(size int) *Exclusions {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Exclusions{
		ring:   make([]string, 0, size),
		names:  make([]string, 0, size),
		size:   size,
		played: make(map[string]map[string]struct{}),
	}
}

// Key normalizes an artist or title for comparison.
func Key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Push records an artist as recently selected, evicting the oldest entry when
// the ring is full.
func (e *Exclusions) Push(artist string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.ring) == e.size {
		e.ring = append(e.ring[:0], e.ring[1:]...)
		e.names = append(e.names[:0], e.names[1:]...)
	}
	e.ring = append(e.ring, Key(artist))
	e.names = append(e.names, artist)
}

// Excluded reports whether an artist is in the ring or was last performed.
func (e *Exclusions) Excluded(artist string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := Key(artist)
	if k == e.lastPerformed && k != "" {
		return true
	}
	for _, r := range e.ring {
		if r == k {
			return true
		}
	}
	return false
}

// Ring returns the recently selected artists, oldest first.
func (e *Exclusions) Ring() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.names...)
}

// Len returns the number of artists in the ring.
func (e *Exclusions) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ring)
}

// Cap returns the ring capacity.
func (e *Exclusions) Cap() int {
	return e.size
}

// MarkPlayed adds a title to the artist's played set.
func (e *Exclusions) MarkPlayed(artist, title string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := Key(artist)
	set, ok := e.played[a]
	if !ok {
		set = make(map[string]struct{})
		e.played[a] = set
	}
	set[Key(title)] = struct{}{}
}

// Played reports whether the artist's title has been played.
func (e *Exclusions) Played(artist, title string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.played[Key(artist)][Key(title)]
	return ok
}

// PlayedCount returns the size of the artist's played set.
func (e *Exclusions) PlayedCount(artist string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.played[Key(artist)])
}

// ClearPlayed empties the played set of a single artist.
func (e *Exclusions) ClearPlayed(artist string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.played, Key(artist))
}

// MarkPerformed records the artist of a track that started self-playing.
func (e *Exclusions) MarkPerformed(artist string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastPerformed = Key(artist)
	e.lastPerformedName = artist
}

// LastPerformed returns the artist most recently performed by self.
func (e *Exclusions) LastPerformed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPerformedName
}
