package room

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEvictsOldest(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(PlayEvent{Artist: fmt.Sprintf("a%d", i)})
	}

	require.Equal(t, 3, h.Len())
	recent := h.Recent(0)
	assert.Equal(t, "a2", recent[0].Artist)
	assert.Equal(t, "a4", recent[2].Artist)
}

func TestHistoryHumansSkipsSelf(t *testing.T) {
	t.Parallel()

	h := NewHistory(10)
	h.Push(PlayEvent{Artist: "human1"})
	h.Push(PlayEvent{Artist: "bot", IsSelfPerformed: true})
	h.Push(PlayEvent{Artist: "human2"})
	h.Push(PlayEvent{Artist: "human3"})

	got := h.Humans(2)
	require.Len(t, got, 2)
	assert.Equal(t, "human2", got[0].Artist)
	assert.Equal(t, "human3", got[1].Artist)
}

func TestSnapshotCounts(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		SelfID:     "bot",
		Performers: []Performer{{ID: "a"}, {ID: "bot"}, {ID: "b"}},
	}

	assert.True(t, snap.IsOnStage())
	assert.Equal(t, 3, snap.PerformerCount())
	assert.Equal(t, 2, snap.HumanPerformerCount())
}

func TestCurrentHumanTrack(t *testing.T) {
	t.Parallel()

	track := Track{Artist: "Sleep", Title: "Dopesmoker"}

	human := Snapshot{SelfID: "bot", CurrentTrack: &track, CurrentPerformerID: "u1"}
	got, ok := human.CurrentHumanTrack()
	require.True(t, ok)
	assert.Equal(t, track, got)

	self := Snapshot{SelfID: "bot", CurrentTrack: &track, CurrentPerformerID: "bot"}
	_, ok = self.CurrentHumanTrack()
	assert.False(t, ok)

	empty := Snapshot{SelfID: "bot"}
	_, ok = empty.CurrentHumanTrack()
	assert.False(t, ok)
}

func TestNormalizeVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		payload        string
		wantPerformers []string
		wantTrack      *Track
		wantDJ         string
		wantHistory    int
	}{
		{
			name:           "ttfm style",
			payload:        `{"djs":[{"uuid":"u1"},{"uuid":"bot"}],"nowPlaying":{"artistName":"Deftones","trackName":"Digital Bath","djUuid":"u1"}}`,
			wantPerformers: []string{"u1", "bot"},
			wantTrack:      &Track{Artist: "Deftones", Title: "Digital Bath"},
			wantDJ:         "u1",
		},
		{
			name:           "nested room with string performers",
			payload:        `{"room":{"djs":["u1","u2","u1"],"currentSong":{"artist":"Isis","title":"Celestial"}},"room.currentDj":"x"}`,
			wantPerformers: []string{"u1", "u2"},
			wantTrack:      &Track{Artist: "Isis", Title: "Celestial"},
		},
		{
			name:           "playback song and history",
			payload:        `{"performers":[{"userId":"u9","name":"nine"}],"playback":{"song":{"artist":"MF DOOM","name":"Rhymes Like Dimes"},"djUuid":"u9"},"history":[{"artist":"Madvillain","title":"Accordion","djId":"u9"},{"artist":"Bot Pick","title":"x","djId":"bot"},{"title":""}]}`,
			wantPerformers: []string{"u9"},
			wantTrack:      &Track{Artist: "MF DOOM", Title: "Rhymes Like Dimes"},
			wantDJ:         "u9",
			wantHistory:    1,
		},
		{
			name:    "empty object",
			payload: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			snap, err := Normalize([]byte(tt.payload), "bot")
			require.NoError(t, err)

			ids := make([]string, 0, len(snap.Performers))
			for _, p := range snap.Performers {
				ids = append(ids, p.ID)
			}
			if len(tt.wantPerformers) == 0 {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.wantPerformers, ids)
			}
			assert.Equal(t, tt.wantTrack, snap.CurrentTrack)
			if tt.wantDJ != "" {
				assert.Equal(t, tt.wantDJ, snap.CurrentPerformerID)
			}
			assert.Len(t, snap.RecentHumanPlays, tt.wantHistory)
			assert.Equal(t, "bot", snap.SelfID)
		})
	}
}

func TestNormalizeRejectsNonObject(t *testing.T) {
	t.Parallel()

	_, err := Normalize([]byte(`[1,2]`), "bot")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestStoreRecordsTrackChanges(t *testing.T) {
	t.Parallel()

	s := NewStore("bot", 10)
	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	first := Track{Artist: "Tool", Title: "Sober"}
	s.Update(Snapshot{CurrentTrack: &first, CurrentPerformerID: "u1"})
	s.Update(Snapshot{CurrentTrack: &first, CurrentPerformerID: "u1"})

	second := Track{Artist: "Korn", Title: "Blind"}
	s.Update(Snapshot{CurrentTrack: &second, CurrentPerformerID: "bot"})

	history := s.History(0)
	require.Len(t, history, 2)
	assert.False(t, history[0].IsSelfPerformed)
	assert.True(t, history[1].IsSelfPerformed)

	snap := s.Snapshot()
	require.Len(t, snap.RecentHumanPlays, 1)
	assert.Equal(t, "Tool", snap.RecentHumanPlays[0].Artist)
}

func TestParseEventKind(t *testing.T) {
	t.Parallel()

	for _, k := range []EventKind{EventPerformerJoined, EventPerformerLeft, EventTrackStarted, EventTrackFinished} {
		got, ok := ParseEventKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}

	_, ok := ParseEventKind("nope")
	assert.False(t, ok)
}

func TestStoreApplyEvents(t *testing.T) {
	t.Parallel()

	s := NewStore("bot", 10)
	s.Update(Snapshot{Performers: []Performer{{ID: "u1"}}})

	s.Apply(Event{Kind: EventPerformerJoined, PerformerID: "bot"})
	s.Apply(Event{Kind: EventPerformerJoined, PerformerID: "bot"})
	snap := s.Snapshot()
	assert.True(t, snap.IsOnStage())
	assert.Equal(t, 2, snap.PerformerCount())

	s.Apply(Event{Kind: EventTrackStarted, PerformerID: "u1", Track: Track{Artist: "Nas", Title: "N.Y. State of Mind"}})
	s.Apply(Event{Kind: EventTrackStarted, PerformerID: "u1", Track: Track{Artist: "Nas", Title: "N.Y. State of Mind"}})
	s.Apply(Event{Kind: EventTrackFinished, PerformerID: "u1"})
	require.Len(t, s.History(0), 1)
	snap = s.Snapshot()
	require.NotNil(t, snap.CurrentTrack)
	assert.Equal(t, "Nas", snap.CurrentTrack.Artist)
	assert.Equal(t, "u1", snap.CurrentPerformerID)

	s.Apply(Event{Kind: EventPerformerLeft, PerformerID: "bot"})
	snap = s.Snapshot()
	assert.False(t, snap.IsOnStage())
	assert.Equal(t, 1, snap.PerformerCount())
}
