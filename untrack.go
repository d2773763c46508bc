package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runpulse/runpulse/internal/track"
)

func newUntrackCmd() *cobra.Command {
	var (
		flagLevel string
		flagVars  []string
	)

	cmd := &cobra.Command{
		Use:   "untrack <game-id> [category-id]",
		Short: "Stop tracking a run, or a whole game",
		Long: `With only a game id, removes the game and everything tracked under it.
With a category id, removes that single run configuration; pass the same
--level and --var selection that was used to track it.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			store, writer, err := loadStore(logger)
			if err != nil {
				return err
			}

			gameID := args[0]

			if len(args) == 1 {
				if !store.RemoveGame(gameID) {
					return fmt.Errorf("game %s is not tracked", gameID)
				}

				statusf("Untracked game %s.\n", gameID)

				return writer.Flush(store)
			}

			key, err := keyFromFlags(args[1], flagVars)
			if err != nil {
				return err
			}

			if !store.Remove(gameID, key, flagLevel) {
				return fmt.Errorf("no tracked run matches this configuration")
			}

			statusf("Untracked %s.\n", key)

			return writer.Flush(store)
		},
	}

	cmd.Flags().StringVar(&flagLevel, "level", "", "level id of the tracked run")
	cmd.Flags().StringArrayVar(&flagVars, "var", nil, "subcategory selection as <variable-id>=<value-id> (repeatable)")

	return cmd
}

// keyFromFlags rebuilds a config key from a category id and --var flags.
// Only value ids matter for identity, so no API lookup is needed.
func keyFromFlags(categoryID string, varFlags []string) (string, error) {
	variables := make(map[string]track.VariableValue, len(varFlags))

	for _, pair := range varFlags {
		varID, valueID, found := strings.Cut(pair, "=")
		if !found || varID == "" || valueID == "" {
			return "", fmt.Errorf("invalid --var %q, expected <variable-id>=<value-id>", pair)
		}

		variables[varID] = track.VariableValue{ValueID: valueID}
	}

	return track.ConfigKey(categoryID, variables), nil
}
