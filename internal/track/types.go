// Package track implements the tracked-run store and the synchronization
// engine that polls speedrun.com leaderboards for changes to tracked world
// records: a bounded worker pool fetches, a single coordinating goroutine
// reconciles and persists.
package track

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RunType distinguishes full-game runs from individual-level runs.
type RunType string

const (
	RunFullGame RunType = "full_game"
	RunLevel    RunType = "il"
)

// Game is one tracked game and everything watched under it. A game exists
// only while it owns at least one category run; removing the last run
// removes the game.
type Game struct {
	Name     string                  `json:"name"`
	Weblink  string                  `json:"weblink"`
	AddedAt  int64                   `json:"_added_timestamp"`
	FullGame map[string]*CategoryRun `json:"full_game_categories"`
	Levels   map[string]*Level       `json:"levels"`
}

// Level is an individual level with its tracked category runs. A level is
// pruned automatically when its last category run is removed.
type Level struct {
	Name       string                  `json:"name"`
	Categories map[string]*CategoryRun `json:"categories"`
}

// VariableValue is one selected subcategory variable value.
type VariableValue struct {
	ValueID string `json:"value_id"`
	Label   string `json:"label"`
}

// CategoryRun is the unit the engine reconciles: one (category, variable
// selection) leaderboard and its currently known world record.
type CategoryRun struct {
	Name            string                   `json:"name"`
	Time            *float64                 `json:"current_record_time"`
	Weblink         string                   `json:"weblink"`
	RunID           string                   `json:"run_id,omitempty"`
	Runners         []string                 `json:"current_runners"`
	RunnerLinks     []*string                `json:"player_weblinks"`
	DateCompleted   string                   `json:"date_completed"`
	Variables       map[string]VariableValue `json:"variables"`
	NewRecordBroken bool                     `json:"is_new_record_broken"`
	Miscellaneous   bool                     `json:"is_miscellaneous"`
	Obsolete        bool                     `json:"is_obsolete"`
}

// DisplayName renders the run's human-readable name: level prefix, category
// name, and the sorted variable value labels.
func (r *CategoryRun) DisplayName(levelName string) string {
	name := r.Name
	if levelName != "" {
		name = levelName + ": " + name
	}

	if len(r.Variables) == 0 {
		return name
	}

	labels := make([]string, 0, len(r.Variables))
	for _, v := range r.Variables {
		if v.Label != "" {
			labels = append(labels, v.Label)
		}
	}

	if len(labels) == 0 {
		return name
	}

	sort.Strings(labels)

	return fmt.Sprintf("%s (%s)", name, strings.Join(labels, ", "))
}

// CheckTask is one unit of work for a check cycle: enough identity to build
// the leaderboard lookup URL and to find the run again afterwards. Produced
// by snapshotting the store at cycle start, consumed exactly once.
type CheckTask struct {
	Type    RunType
	GameID  string
	Key     string
	LevelID string
}

// BrokenRecord is one entry in the broken-records history.
type BrokenRecord struct {
	GameName     string
	LevelName    string
	CategoryName string
	Time         *float64
	Runners      []string
	Date         string
	Weblink      string

	// Identity of the tracked run this entry belongs to. Marking a run
	// read drops its entries by this identity, never by weblink: two
	// tracked configurations can share a record run and its link.
	gameID  string
	key     string
	levelID string
}

// CycleReport summarizes one completed check cycle.
type CycleReport struct {
	ID         string
	Total      int
	Updated    int
	NewRecords int
	Obsoleted  int
	Failed     int
	Duration   time.Duration
}
