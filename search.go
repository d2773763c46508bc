package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runpulse/runpulse/internal/srcom"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <name>",
		Short: "Search speedrun.com for games by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			session := srcom.NewSearchSession(newAPIClient(logger))

			res, ok := <-session.Search(cmd.Context(), args[0])
			if !ok {
				return nil
			}

			if res.Err != nil {
				return fmt.Errorf("searching games: %w", res.Err)
			}

			if len(res.Games) == 0 {
				statusf("No games found for %q.\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(res.Games))
			for i := range res.Games {
				g := &res.Games[i]
				rows = append(rows, []string{g.ID, g.DisplayName(), g.Weblink})
			}

			printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "WEBLINK"}, rows)

			return nil
		},
	}
}
