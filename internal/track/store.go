package track

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder selects the presentation ordering of tracked games.
type SortOrder string

const (
	// SortAddedDesc lists the most recently tracked games first. Legacy
	// entries without a timestamp sort last.
	SortAddedDesc SortOrder = "added_desc"
	// SortNameAsc lists games by display name, case-insensitively.
	SortNameAsc SortOrder = "name_asc"
)

// Store is the in-memory model of everything the user watches. It performs
// no locking: all mutation happens on the engine's coordinating goroutine,
// and persistence is the Writer's concern. CLI commands that run without an
// engine own the store exclusively for the life of the process.
type Store struct {
	games   map[string]*Game
	history []BrokenRecord
	unseen  bool
	logger  *slog.Logger
	coll    *collate.Collator

	// now stamps newly tracked games. Tests override it.
	now func() time.Time
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		games:  make(map[string]*Game),
		logger: logger,
		coll:   collate.New(language.Und, collate.IgnoreCase),
		now:    time.Now,
	}
}

// Load reads the persisted state file into the store. A missing or corrupt
// file falls back to an empty store rather than failing startup; entries
// persisted before timestamps existed load with AddedAt zero. The
// broken-records history and the unseen flag are rebuilt from the persisted
// is_new_record_broken flags.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		s.logger.Warn("state file unreadable, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil
	}

	games := make(map[string]*Game)
	if err := json.Unmarshal(data, &games); err != nil {
		s.logger.Warn("state file corrupt, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil
	}

	s.games = games
	s.normalize()
	s.rebuildHistory()

	return nil
}

// normalize backfills nil maps left by older or hand-edited state files.
func (s *Store) normalize() {
	for _, g := range s.games {
		if g.FullGame == nil {
			g.FullGame = make(map[string]*CategoryRun)
		}

		if g.Levels == nil {
			g.Levels = make(map[string]*Level)
		}

		for _, lvl := range g.Levels {
			if lvl.Categories == nil {
				lvl.Categories = make(map[string]*CategoryRun)
			}
		}
	}
}

// rebuildHistory repopulates the broken-records history and the unseen flag
// from runs whose record flag is still set.
func (s *Store) rebuildHistory() {
	s.history = nil
	s.unseen = false

	for gameID, g := range s.games {
		for key, run := range g.FullGame {
			if run.NewRecordBroken {
				s.unseen = true
				task := CheckTask{Type: RunFullGame, GameID: gameID, Key: key}
				s.history = append(s.history, brokenRecordFor(task, g, run, ""))
			}
		}

		for levelID, lvl := range g.Levels {
			for key, run := range lvl.Categories {
				if run.NewRecordBroken {
					s.unseen = true
					task := CheckTask{Type: RunLevel, GameID: gameID, Key: key, LevelID: levelID}
					s.history = append(s.history, brokenRecordFor(task, g, run, lvl.Name))
				}
			}
		}
	}
}

// EncodeState serializes the store for persistence, matching the on-disk
// format keyed by game id.
func (s *Store) EncodeState() ([]byte, error) {
	return json.MarshalIndent(s.games, "", "    ")
}

// ActiveTasks snapshots every non-obsolete category run into check tasks.
// Obsolete runs are excluded until removed or re-tracked.
func (s *Store) ActiveTasks() []CheckTask {
	var tasks []CheckTask

	for gameID, g := range s.games {
		for key, run := range g.FullGame {
			if !run.Obsolete {
				tasks = append(tasks, CheckTask{Type: RunFullGame, GameID: gameID, Key: key})
			}
		}

		for levelID, lvl := range g.Levels {
			for key, run := range lvl.Categories {
				if !run.Obsolete {
					tasks = append(tasks, CheckTask{Type: RunLevel, GameID: gameID, Key: key, LevelID: levelID})
				}
			}
		}
	}

	return tasks
}

// Get returns the category run for the given scope, or false when any part
// of the path no longer exists.
func (s *Store) Get(gameID, key, levelID string) (*CategoryRun, bool) {
	g, ok := s.games[gameID]
	if !ok {
		return nil, false
	}

	if levelID == "" {
		run, ok := g.FullGame[key]
		return run, ok
	}

	lvl, ok := g.Levels[levelID]
	if !ok {
		return nil, false
	}

	run, ok := lvl.Categories[key]

	return run, ok
}

// Game returns the tracked game by id.
func (s *Store) Game(gameID string) (*Game, bool) {
	g, ok := s.games[gameID]
	return g, ok
}

// GameMeta carries the parent-game fields needed when Upsert has to create
// the game entry.
type GameMeta struct {
	Name    string
	Weblink string
}

// Tracked reports whether a run with this exact config key is already
// tracked in the given scope. Duplicate tracking is rejected at the command
// boundary using this check; Upsert itself replaces.
func (s *Store) Tracked(gameID, key, levelID string) bool {
	_, ok := s.Get(gameID, key, levelID)
	return ok
}

// Upsert inserts or replaces a category run, creating the parent game and
// level as needed. Newly created games are stamped with the current time.
func (s *Store) Upsert(gameID string, meta GameMeta, levelID, levelName, key string, run *CategoryRun) {
	g, ok := s.games[gameID]
	if !ok {
		g = &Game{
			Name:     meta.Name,
			Weblink:  meta.Weblink,
			AddedAt:  s.now().Unix(),
			FullGame: make(map[string]*CategoryRun),
			Levels:   make(map[string]*Level),
		}
		s.games[gameID] = g
	}

	if levelID == "" {
		g.FullGame[key] = run
		return
	}

	lvl, ok := g.Levels[levelID]
	if !ok {
		lvl = &Level{Name: levelName, Categories: make(map[string]*CategoryRun)}
		g.Levels[levelID] = lvl
	}

	lvl.Categories[key] = run
}

// Remove deletes a category run and prunes a now-empty parent level and
// game. Returns false when nothing matched.
func (s *Store) Remove(gameID, key, levelID string) bool {
	g, ok := s.games[gameID]
	if !ok {
		return false
	}

	removed := false

	if levelID == "" {
		if _, ok := g.FullGame[key]; ok {
			delete(g.FullGame, key)
			removed = true
		}
	} else if lvl, ok := g.Levels[levelID]; ok {
		if _, ok := lvl.Categories[key]; ok {
			delete(lvl.Categories, key)
			removed = true

			if len(lvl.Categories) == 0 {
				delete(g.Levels, levelID)
			}
		}
	}

	if removed && len(g.FullGame) == 0 && len(g.Levels) == 0 {
		delete(s.games, gameID)
	}

	return removed
}

// RemoveGame deletes a game and everything tracked under it.
func (s *Store) RemoveGame(gameID string) bool {
	if _, ok := s.games[gameID]; !ok {
		return false
	}

	delete(s.games, gameID)

	return true
}

// MarkRead clears the new-record flag on one run and drops its history
// entries. Returns false when the run does not exist or was not flagged.
func (s *Store) MarkRead(gameID, key, levelID string) bool {
	run, ok := s.Get(gameID, key, levelID)
	if !ok || !run.NewRecordBroken {
		return false
	}

	run.NewRecordBroken = false

	kept := s.history[:0]
	for _, rec := range s.history {
		if rec.gameID != gameID || rec.key != key || rec.levelID != levelID {
			kept = append(kept, rec)
		}
	}
	s.history = kept

	s.recomputeUnseen()

	return true
}

// MarkAllRead clears every new-record flag and the whole history.
func (s *Store) MarkAllRead() {
	for _, g := range s.games {
		for _, run := range g.FullGame {
			run.NewRecordBroken = false
		}

		for _, lvl := range g.Levels {
			for _, run := range lvl.Categories {
				run.NewRecordBroken = false
			}
		}
	}

	s.history = nil
	s.unseen = false
}

func (s *Store) recomputeUnseen() {
	s.unseen = false

	for _, g := range s.games {
		for _, run := range g.FullGame {
			if run.NewRecordBroken {
				s.unseen = true
				return
			}
		}

		for _, lvl := range g.Levels {
			for _, run := range lvl.Categories {
				if run.NewRecordBroken {
					s.unseen = true
					return
				}
			}
		}
	}
}

// UnseenRecords reports whether any run carries an unread new-record flag.
func (s *Store) UnseenRecords() bool {
	return s.unseen
}

// History returns a copy of the broken-records history, oldest first.
func (s *Store) History() []BrokenRecord {
	out := make([]BrokenRecord, len(s.history))
	copy(out, s.history)

	return out
}

// addHistory appends a broken-record entry and raises the unseen flag.
func (s *Store) addHistory(rec BrokenRecord) {
	s.history = append(s.history, rec)
	s.unseen = true
}

// brokenRecordFor builds a history entry from the run's current state,
// stamped with the task identity so MarkRead can drop it later.
func brokenRecordFor(task CheckTask, g *Game, run *CategoryRun, levelName string) BrokenRecord {
	return BrokenRecord{
		GameName:     g.Name,
		LevelName:    levelName,
		CategoryName: run.DisplayName(levelName),
		Time:         run.Time,
		Runners:      append([]string(nil), run.Runners...),
		Date:         run.DateCompleted,
		Weblink:      run.Weblink,
		gameID:       task.GameID,
		key:          task.Key,
		levelID:      task.LevelID,
	}
}

// GameEntry pairs a game id with its data for sorted listings.
type GameEntry struct {
	ID   string
	Game *Game
}

// Games returns tracked games in the requested presentation order. Name
// ordering is locale-collated and case-insensitive; added-date ordering is
// newest first with untimestamped legacy entries last.
func (s *Store) Games(order SortOrder) []GameEntry {
	entries := make([]GameEntry, 0, len(s.games))
	for id, g := range s.games {
		entries = append(entries, GameEntry{ID: id, Game: g})
	}

	switch order {
	case SortNameAsc:
		sort.Slice(entries, func(i, j int) bool {
			if c := s.coll.CompareString(entries[i].Game.Name, entries[j].Game.Name); c != 0 {
				return c < 0
			}

			return entries[i].ID < entries[j].ID
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Game.AddedAt != entries[j].Game.AddedAt {
				return entries[i].Game.AddedAt > entries[j].Game.AddedAt
			}

			return s.coll.CompareString(entries[i].Game.Name, entries[j].Game.Name) < 0
		})
	}

	return entries
}

// Len returns the number of tracked category runs, obsolete included.
func (s *Store) Len() int {
	n := 0

	for _, g := range s.games {
		n += len(g.FullGame)

		for _, lvl := range g.Levels {
			n += len(lvl.Categories)
		}
	}

	return n
}
