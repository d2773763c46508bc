package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runpulse/runpulse/internal/srcom"
	"github.com/runpulse/runpulse/internal/track"
)

func newTrackCmd() *cobra.Command {
	var (
		flagLevel string
		flagVars  []string
	)

	cmd := &cobra.Command{
		Use:   "track <game-id> <category-id>",
		Short: "Start tracking a leaderboard's world record",
		Long: `Tracks the world record of one leaderboard: a category of a game, optionally
scoped to an individual level and a subcategory variable selection.

Game and category ids come from 'runpulse search' and speedrun.com URLs.
Subcategory values are passed as --var <variable-id>=<value-id>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrack(cmd.Context(), args[0], args[1], flagLevel, flagVars)
		},
	}

	cmd.Flags().StringVar(&flagLevel, "level", "", "level id for an individual-level run")
	cmd.Flags().StringArrayVar(&flagVars, "var", nil, "subcategory selection as <variable-id>=<value-id> (repeatable)")

	return cmd
}

func runTrack(ctx context.Context, gameID, categoryID, levelID string, varFlags []string) error {
	logger := buildLogger()

	store, writer, err := loadStore(logger)
	if err != nil {
		return err
	}

	client := newAPIClient(logger)

	details, err := client.GameDetails(ctx, gameID)
	if err != nil {
		return fmt.Errorf("looking up game %s: %w", gameID, err)
	}

	levelName, err := resolveLevelName(details, levelID)
	if err != nil {
		return err
	}

	cat, err := resolveCategory(ctx, client, details, categoryID, levelID)
	if err != nil {
		return err
	}

	variables, err := resolveVariables(cat, varFlags)
	if err != nil {
		return err
	}

	key := track.ConfigKey(categoryID, variables)
	if store.Tracked(gameID, key, levelID) {
		return fmt.Errorf("this run configuration is already tracked")
	}

	run := &track.CategoryRun{
		Name:          cat.Name,
		Variables:     variables,
		Miscellaneous: cat.Miscellaneous,
	}

	if err := seedRecord(ctx, client, logger, run, gameID, categoryID, levelID, variables); err != nil {
		return err
	}

	store.Upsert(gameID, track.GameMeta{
		Name:    details.Names.International,
		Weblink: details.Weblink,
	}, levelID, levelName, key, run)

	if err := writer.Flush(store); err != nil {
		return err
	}

	statusf("Tracking %s: %s (current record: %s)\n",
		details.Names.International, run.DisplayName(levelName), formatRunTime(run.Time))

	return nil
}

// resolveLevelName checks the level id against the game's levels. An empty
// level id means a full-game run.
func resolveLevelName(details *srcom.Game, levelID string) (string, error) {
	if levelID == "" {
		return "", nil
	}

	for _, lvl := range details.Levels.Data {
		if lvl.ID == levelID {
			return lvl.Name, nil
		}
	}

	return "", fmt.Errorf("game %s has no level %s", details.Names.International, levelID)
}

// resolveCategory finds the category in the right scope. Full-game runs use
// the game's per-game categories; level runs use the level's own category
// list, since games can restrict categories per level.
func resolveCategory(ctx context.Context, client *srcom.Client, details *srcom.Game, categoryID, levelID string) (*srcom.Category, error) {
	cats := details.Cats.Data

	if levelID != "" {
		levelCats, err := client.LevelCategories(ctx, levelID)
		if err != nil {
			return nil, fmt.Errorf("looking up level categories: %w", err)
		}

		cats = levelCats
	}

	for i := range cats {
		c := &cats[i]
		if c.ID != categoryID {
			continue
		}

		if levelID == "" && c.Type == "per-level" {
			return nil, fmt.Errorf("category %s is per-level, pass --level", c.Name)
		}

		return c, nil
	}

	return nil, fmt.Errorf("no category %s in this scope", categoryID)
}

// resolveVariables validates --var selections against the category's
// subcategory variables and attaches the human-readable labels.
func resolveVariables(cat *srcom.Category, varFlags []string) (map[string]track.VariableValue, error) {
	variables := make(map[string]track.VariableValue, len(varFlags))

	for _, pair := range varFlags {
		varID, valueID, found := strings.Cut(pair, "=")
		if !found || varID == "" || valueID == "" {
			return nil, fmt.Errorf("invalid --var %q, expected <variable-id>=<value-id>", pair)
		}

		variable := findVariable(cat, varID)
		if variable == nil {
			return nil, fmt.Errorf("category %s has no variable %s", cat.Name, varID)
		}

		value, ok := variable.Values.Values[valueID]
		if !ok {
			return nil, fmt.Errorf("variable %s has no value %s", variable.Name, valueID)
		}

		variables[varID] = track.VariableValue{ValueID: valueID, Label: value.Label}
	}

	return variables, nil
}

func findVariable(cat *srcom.Category, varID string) *srcom.Variable {
	for i := range cat.Variables.Data {
		if cat.Variables.Data[i].ID == varID {
			return &cat.Variables.Data[i]
		}
	}

	return nil
}

// seedRecord fills the new run from the leaderboard's current top entry.
// A board that does not exist is rejected outright; a board that merely
// cannot be reached right now still gets tracked, and the first check cycle
// discovers the record instead.
func seedRecord(ctx context.Context, client *srcom.Client, logger *slog.Logger, run *track.CategoryRun, gameID, categoryID, levelID string, variables map[string]track.VariableValue) error {
	varIDs := make(map[string]string, len(variables))
	for id, v := range variables {
		varIDs[id] = v.ValueID
	}

	lb, err := client.Leaderboard(ctx, gameID, categoryID, levelID, varIDs)
	if err != nil {
		if srcom.Classify(err) == srcom.KindNotFound {
			return fmt.Errorf("no leaderboard exists for this configuration: %w", err)
		}

		logger.Warn("could not fetch current record, tracking anyway",
			slog.String("error", err.Error()),
		)

		return nil
	}

	top, ok := lb.TopRun()
	if !ok || top.Times.PrimarySeconds == nil {
		return nil
	}

	t := *top.Times.PrimarySeconds
	names, links := lb.ResolvePlayers(top)

	run.Time = &t
	run.Weblink = top.Weblink
	run.RunID = top.ID
	run.Runners = names
	run.RunnerLinks = links
	run.DateCompleted = top.Date

	return nil
}
