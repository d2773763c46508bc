package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runpulse/runpulse/internal/track"
)

func newListCmd() *cobra.Command {
	var (
		flagSort string
		flagKeys bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked games and their current records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			order := track.SortAddedDesc
			if flagSort == "name" {
				order = track.SortNameAsc
			}

			return runList(cmd.OutOrStdout(), order, flagKeys)
		},
	}

	cmd.Flags().StringVar(&flagSort, "sort", "added", "sort order: added (newest first) or name")
	cmd.Flags().BoolVar(&flagKeys, "keys", false, "show config keys for use with untrack and mark-read")

	return cmd
}

func runList(out io.Writer, order track.SortOrder, showKeys bool) error {
	logger := buildLogger()

	store, _, err := loadStore(logger)
	if err != nil {
		return err
	}

	entries := store.Games(order)
	if len(entries) == 0 {
		statusf("Nothing is tracked yet.\n")
		return nil
	}

	for i, entry := range entries {
		if i > 0 {
			fmt.Fprintln(out)
		}

		fmt.Fprintf(out, "%s  %s\n", entry.Game.Name, entry.Game.Weblink)
		printGameRuns(out, entry.Game, showKeys)
	}

	return nil
}

// runRow is one presentable category run with its scope resolved.
type runRow struct {
	key     string
	levelID string
	run     *track.CategoryRun
	display string
}

func printGameRuns(out io.Writer, g *track.Game, showKeys bool) {
	rows := collectRows(g)

	headers := []string{"CATEGORY", "TIME", "RUNNERS", "DATE", "STATUS"}
	if showKeys {
		headers = append(headers, "KEY")
	}

	table := make([][]string, 0, len(rows))

	for _, r := range rows {
		row := []string{
			r.display,
			formatRunTime(r.run.Time),
			strings.Join(r.run.Runners, ", "),
			r.run.DateCompleted,
			runStatus(r.run),
		}

		if showKeys {
			key := r.key
			if r.levelID != "" {
				key = r.levelID + "/" + key
			}

			row = append(row, key)
		}

		table = append(table, row)
	}

	printTable(out, headers, table)
}

func collectRows(g *track.Game) []runRow {
	var rows []runRow

	for key, run := range g.FullGame {
		rows = append(rows, runRow{key: key, run: run, display: run.DisplayName("")})
	}

	for levelID, lvl := range g.Levels {
		for key, run := range lvl.Categories {
			rows = append(rows, runRow{
				key:     key,
				levelID: levelID,
				run:     run,
				display: run.DisplayName(lvl.Name),
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].display < rows[j].display })

	return rows
}

func runStatus(run *track.CategoryRun) string {
	switch {
	case run.Obsolete:
		return "obsolete"
	case run.NewRecordBroken:
		return "new record!"
	default:
		return ""
	}
}
