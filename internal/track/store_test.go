package track

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func floatPtr(f float64) *float64 { return &f }

func newRun(name string, secs float64) *CategoryRun {
	return &CategoryRun{
		Name:          name,
		Time:          floatPtr(secs),
		Weblink:       "https://www.speedrun.com/run/" + name,
		Runners:       []string{"runner1"},
		RunnerLinks:   []*string{nil},
		DateCompleted: "2024-01-01",
		Variables:     map[string]VariableValue{},
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(testLogger())

	err := s.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewStore(testLogger())

	err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStoreLoadLegacyTimestampAndHistory(t *testing.T) {
	state := `{
	  "game1": {
	    "name": "Old Game",
	    "weblink": "https://www.speedrun.com/game1",
	    "full_game_categories": {
	      "cat1-{}": {
	        "name": "Any%",
	        "current_record_time": 100.5,
	        "weblink": "https://www.speedrun.com/run/abc",
	        "current_runners": ["alice"],
	        "player_weblinks": [null],
	        "date_completed": "2023-05-01",
	        "variables": {},
	        "is_new_record_broken": true,
	        "is_miscellaneous": false,
	        "is_obsolete": false
	      }
	    }
	  }
	}`

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(state), 0o600))

	s := NewStore(testLogger())
	require.NoError(t, s.Load(path))

	g, ok := s.Game("game1")
	require.True(t, ok)
	assert.Zero(t, g.AddedAt)
	assert.NotNil(t, g.Levels)

	assert.True(t, s.UnseenRecords())

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, "Old Game", history[0].GameName)
	assert.Equal(t, "Any%", history[0].CategoryName)
}

func TestStoreUpsertCreatesParents(t *testing.T) {
	s := NewStore(testLogger())
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	s.Upsert("game1", GameMeta{Name: "Game", Weblink: "https://example.com"}, "", "", "cat1-{}", newRun("Any%", 100))
	s.Upsert("game1", GameMeta{Name: "Game"}, "lvl1", "First Level", "cat2-{}", newRun("NG", 50))

	g, ok := s.Game("game1")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), g.AddedAt)
	assert.Equal(t, "First Level", g.Levels["lvl1"].Name)
	assert.Equal(t, 2, s.Len())

	run, ok := s.Get("game1", "cat2-{}", "lvl1")
	require.True(t, ok)
	assert.Equal(t, "NG", run.Name)
}

func TestStoreRemovePrunesEmptyParents(t *testing.T) {
	s := NewStore(testLogger())
	s.Upsert("game1", GameMeta{Name: "Game"}, "lvl1", "Level", "cat1-{}", newRun("Any%", 100))

	require.True(t, s.Remove("game1", "cat1-{}", "lvl1"))

	_, ok := s.Game("game1")
	assert.False(t, ok, "empty game should be pruned")

	assert.False(t, s.Remove("game1", "cat1-{}", "lvl1"))
}

func TestStoreActiveTasksSkipObsolete(t *testing.T) {
	s := NewStore(testLogger())

	live := newRun("Any%", 100)
	gone := newRun("100%", 200)
	gone.Obsolete = true

	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", "cat1-{}", live)
	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", "cat2-{}", gone)

	tasks := s.ActiveTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "cat1-{}", tasks[0].Key)
	assert.Equal(t, RunFullGame, tasks[0].Type)
}

func TestStoreMarkRead(t *testing.T) {
	s := NewStore(testLogger())

	run := newRun("Any%", 100)
	run.NewRecordBroken = true
	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", "cat1-{}", run)
	g, _ := s.Game("game1")
	s.addHistory(brokenRecordFor(CheckTask{Type: RunFullGame, GameID: "game1", Key: "cat1-{}"}, g, run, ""))

	require.True(t, s.UnseenRecords())
	require.True(t, s.MarkRead("game1", "cat1-{}", ""))

	assert.False(t, run.NewRecordBroken)
	assert.False(t, s.UnseenRecords())
	assert.Empty(t, s.History())

	assert.False(t, s.MarkRead("game1", "cat1-{}", ""), "already read")
}

func TestStoreMarkReadSharedWeblink(t *testing.T) {
	s := NewStore(testLogger())

	// Two tracked configurations whose current record is the same run, so
	// both history entries carry the same weblink.
	first := newRun("Any%", 100)
	first.NewRecordBroken = true
	second := newRun("Any% (No Major Glitches)", 100)
	second.NewRecordBroken = true
	second.Weblink = first.Weblink

	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", "cat1-{}", first)
	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", "cat2-{}", second)

	g, _ := s.Game("game1")
	s.addHistory(brokenRecordFor(CheckTask{Type: RunFullGame, GameID: "game1", Key: "cat1-{}"}, g, first, ""))
	s.addHistory(brokenRecordFor(CheckTask{Type: RunFullGame, GameID: "game1", Key: "cat2-{}"}, g, second, ""))

	require.True(t, s.MarkRead("game1", "cat1-{}", ""))

	assert.True(t, second.NewRecordBroken)
	assert.True(t, s.UnseenRecords())

	history := s.History()
	require.Len(t, history, 1, "the other configuration keeps its entry")
	assert.Equal(t, "Any% (No Major Glitches)", history[0].CategoryName)
}

func TestStoreMarkAllRead(t *testing.T) {
	s := NewStore(testLogger())

	for _, key := range []string{"cat1-{}", "cat2-{}"} {
		run := newRun(key, 100)
		run.NewRecordBroken = true
		s.Upsert("game1", GameMeta{Name: "Game"}, "", "", key, run)
		g, _ := s.Game("game1")
		s.addHistory(brokenRecordFor(CheckTask{Type: RunFullGame, GameID: "game1", Key: key}, g, run, ""))
	}

	s.MarkAllRead()

	assert.False(t, s.UnseenRecords())
	assert.Empty(t, s.History())
}

func TestStoreGamesSortOrders(t *testing.T) {
	s := NewStore(testLogger())

	ts := int64(1000)
	for _, g := range []struct {
		id, name string
		added    int64
	}{
		{"g-old", "zeta", 0}, // legacy entry, no timestamp
		{"g-mid", "Alpha", ts},
		{"g-new", "beta", ts + 100},
	} {
		s.now = func() time.Time { return time.Unix(g.added, 0) }
		s.Upsert(g.id, GameMeta{Name: g.name}, "", "", "cat-{}", newRun("Any%", 100))
		got, _ := s.Game(g.id)
		got.AddedAt = g.added
	}

	byAdded := s.Games(SortAddedDesc)
	require.Len(t, byAdded, 3)
	assert.Equal(t, "g-new", byAdded[0].ID)
	assert.Equal(t, "g-mid", byAdded[1].ID)
	assert.Equal(t, "g-old", byAdded[2].ID, "untimestamped entries sort last")

	byName := s.Games(SortNameAsc)
	assert.Equal(t, []string{"g-mid", "g-new", "g-old"}, []string{byName[0].ID, byName[1].ID, byName[2].ID})
}

func TestStoreEncodeStateRoundTrip(t *testing.T) {
	s := NewStore(testLogger())
	s.Upsert("game1", GameMeta{Name: "Game", Weblink: "https://example.com"}, "", "", "cat1-{}", newRun("Any%", 100))

	data, err := s.EncodeState()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded := NewStore(testLogger())
	require.NoError(t, loaded.Load(path))

	run, ok := loaded.Get("game1", "cat1-{}", "")
	require.True(t, ok)
	assert.Equal(t, "Any%", run.Name)
	require.NotNil(t, run.Time)
	assert.InDelta(t, 100, *run.Time, 0.0001)
}
