package track

import (
	"log/slog"
	"slices"

	"github.com/runpulse/runpulse/internal/srcom"
)

// Outcome classifies what a reconciliation did to the tracked run.
type Outcome int

const (
	// OutcomeUnchanged means the leaderboard state matches what is stored.
	OutcomeUnchanged Outcome = iota
	// OutcomeUpdated means metadata changed without a faster record.
	OutcomeUpdated
	// OutcomeNewRecord means a strictly faster time replaced the stored one.
	OutcomeNewRecord
	// OutcomeObsolete means the leaderboard no longer exists upstream.
	OutcomeObsolete
	// OutcomeFailed means the check failed and the stored run is untouched.
	OutcomeFailed
	// OutcomeSkipped means the run was untracked while its check was in flight.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeUpdated:
		return "updated"
	case OutcomeNewRecord:
		return "new_record"
	case OutcomeObsolete:
		return "obsolete"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Reconciler applies fetched leaderboard state to the store. It runs on the
// engine's coordinating goroutine and never touches the network itself.
type Reconciler struct {
	store  *Store
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store *Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{store: store, logger: logger}
}

// Reconcile merges one check result into the store and reports what
// happened. A not-found failure marks the run obsolete; the flag is sticky
// and the stored record data is preserved for display. An empty but valid
// leaderboard is left alone, since a board with no runs yet is not a board
// that was deleted. Any other failure leaves the run untouched.
func (r *Reconciler) Reconcile(task CheckTask, lb *srcom.Leaderboard, fetchErr error) Outcome {
	run, ok := r.store.Get(task.GameID, task.Key, task.LevelID)
	if !ok {
		return OutcomeSkipped
	}

	if fetchErr != nil {
		if srcom.Classify(fetchErr) == srcom.KindNotFound {
			run.Obsolete = true

			r.logger.Info("tracked leaderboard gone upstream",
				slog.String("game_id", task.GameID),
				slog.String("key", task.Key),
			)

			return OutcomeObsolete
		}

		r.logger.Warn("check failed",
			slog.String("game_id", task.GameID),
			slog.String("key", task.Key),
			slog.String("error", fetchErr.Error()),
		)

		return OutcomeFailed
	}

	top, ok := lb.TopRun()
	if !ok || top.Times.PrimarySeconds == nil {
		return OutcomeUnchanged
	}

	newTime := *top.Times.PrimarySeconds
	names, links := lb.ResolvePlayers(top)

	isNewRecord := run.Time != nil && newTime < *run.Time
	timeDiscovered := run.Time == nil
	runnersChanged := !slices.Equal(names, run.Runners) || !linksEqual(links, run.RunnerLinks)
	linkChanged := top.Weblink != run.Weblink
	runIDFilled := run.RunID == "" && top.ID != ""

	catName := lb.Data.Category.Data.Name
	renamed := catName != "" && catName != run.Name

	levelRenamed := r.syncLevelName(task, lb)

	if !isNewRecord && !timeDiscovered && !runnersChanged && !linkChanged && !runIDFilled && !renamed {
		if levelRenamed {
			return OutcomeUpdated
		}

		return OutcomeUnchanged
	}

	run.Time = &newTime
	run.Weblink = top.Weblink
	run.DateCompleted = top.Date
	run.RunID = top.ID
	run.Runners = names
	run.RunnerLinks = links

	if renamed {
		run.Name = catName
	}

	if !isNewRecord {
		return OutcomeUpdated
	}

	run.NewRecordBroken = true

	g, _ := r.store.Game(task.GameID)
	r.store.addHistory(brokenRecordFor(task, g, run, r.levelName(task)))

	r.logger.Info("record broken",
		slog.String("game", g.Name),
		slog.String("category", run.Name),
		slog.Float64("time", newTime),
		slog.Any("runners", names),
	)

	return OutcomeNewRecord
}

// syncLevelName refreshes the stored level name from the level embed and
// reports whether it changed.
func (r *Reconciler) syncLevelName(task CheckTask, lb *srcom.Leaderboard) bool {
	if task.LevelID == "" {
		return false
	}

	name := lb.Data.Level.Data.Name
	if name == "" {
		return false
	}

	g, ok := r.store.Game(task.GameID)
	if !ok {
		return false
	}

	lvl, ok := g.Levels[task.LevelID]
	if !ok || lvl.Name == name {
		return false
	}

	lvl.Name = name

	return true
}

func (r *Reconciler) levelName(task CheckTask) string {
	if task.LevelID == "" {
		return ""
	}

	g, ok := r.store.Game(task.GameID)
	if !ok {
		return ""
	}

	lvl, ok := g.Levels[task.LevelID]
	if !ok {
		return ""
	}

	return lvl.Name
}

func linksEqual(a, b []*string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		switch {
		case a[i] == nil && b[i] == nil:
		case a[i] == nil || b[i] == nil:
			return false
		case *a[i] != *b[i]:
			return false
		}
	}

	return true
}
