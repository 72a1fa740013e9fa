package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPayload is returned when a room payload is not a JSON object.
var ErrInvalidPayload = errors.New("invalid room payload")

// Field name variants seen in room payloads, tried in order.
var (
	performerKeys    = []string{"djs", "performers", "stage", "room.djs", "state.djs"}
	performerIDKeys  = []string{"uuid", "userId", "userUuid", "id"}
	performerNameKey = []string{"nickname", "name", "userName"}
	currentKeys      = []string{"nowPlaying", "currentSong", "song", "playback.song", "room.nowPlaying", "room.currentSong"}
	currentDJKeys    = []string{"currentDjId", "currentDj", "djUuid", "playback.djUuid", "room.currentDj"}
	historyKeys      = []string{"recentHumanPlays", "history", "recentPlays", "songHistory", "room.history"}
	artistKeys       = []string{"artistName", "artist", "artist.name"}
	titleKeys        = []string{"trackName", "title", "name", "song"}
	trackDJKeys      = []string{"performerId", "djUuid", "djId", "userId", "uuid"}
	timestampKeys    = []string{"timestamp", "playedAt", "startTime"}
)

// Normalize decodes a heterogeneous room payload into the canonical Snapshot.
// Unknown fields are ignored; missing sections yield empty values.
func Normalize(raw []byte, selfID string) (Snapshot, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return NormalizeMap(doc, selfID), nil
}

// NormalizeMap is Normalize for an already decoded payload.
func NormalizeMap(doc map[string]any, selfID string) Snapshot {
	snap := Snapshot{SelfID: selfID}

	if list, ok := firstSlice(doc, performerKeys); ok {
		seen := make(map[string]struct{}, len(list))
		for _, item := range list {
			p, ok := toPerformer(item)
			if !ok {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			snap.Performers = append(snap.Performers, p)
		}
	}

	if cur, ok := firstMap(doc, currentKeys); ok {
		if t := toTrack(cur); !t.IsZero() {
			snap.CurrentTrack = &t
		}
		snap.CurrentPerformerID = firstString(cur, trackDJKeys)
	}
	if snap.CurrentPerformerID == "" {
		snap.CurrentPerformerID = firstString(doc, currentDJKeys)
	}

	if list, ok := firstSlice(doc, historyKeys); ok {
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			t := toTrack(m)
			if t.IsZero() {
				continue
			}
			performer := firstString(m, trackDJKeys)
			if performer != "" && performer == selfID {
				continue
			}
			snap.RecentHumanPlays = append(snap.RecentHumanPlays, PlayEvent{
				Artist:      t.Artist,
				Title:       t.Title,
				PerformerID: performer,
				Timestamp:   toTime(m),
			})
		}
	}

	return snap
}

func toPerformer(v any) (Performer, bool) {
	switch p := v.(type) {
	case string:
		id := strings.TrimSpace(p)
		return Performer{ID: id}, id != ""
	case map[string]any:
		id := firstString(p, performerIDKeys)
		if id == "" {
			return Performer{}, false
		}
		return Performer{ID: id, Name: firstString(p, performerNameKey)}, true
	default:
		return Performer{}, false
	}
}

func toTrack(m map[string]any) Track {
	// Some payloads nest the song under a "song" or "metadata" key.
	if inner, ok := firstMap(m, []string{"song", "metadata"}); ok {
		if t := toTrack(inner); !t.IsZero() {
			return t
		}
	}
	return Track{
		Artist: firstString(m, artistKeys),
		Title:  firstString(m, titleKeys),
	}
}

func toTime(m map[string]any) time.Time {
	for _, key := range timestampKeys {
		switch v := lookupPath(m, key).(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
		case float64:
			// Milliseconds since the epoch.
			return time.UnixMilli(int64(v)).UTC()
		}
	}
	return time.Time{}
}

// lookupPath resolves a dotted key such as "playback.song".
func lookupPath(m map[string]any, path string) any {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func firstString(m map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := lookupPath(m, key).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func firstMap(m map[string]any, keys []string) (map[string]any, bool) {
	for _, key := range keys {
		if v, ok := lookupPath(m, key).(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

func firstSlice(m map[string]any, keys []string) ([]any, bool) {
	for _, key := range keys {
		if v, ok := lookupPath(m, key).([]any); ok {
			return v, true
		}
	}
	return nil, false
}
