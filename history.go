package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show broken records since they were last marked read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			store, _, err := loadStore(logger)
			if err != nil {
				return err
			}

			records := store.History()
			if len(records) == 0 {
				statusf("No unread broken records.\n")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.GameName,
					rec.CategoryName,
					formatRunTime(rec.Time),
					strings.Join(rec.Runners, ", "),
					rec.Date,
					rec.Weblink,
				})
			}

			printTable(cmd.OutOrStdout(),
				[]string{"GAME", "CATEGORY", "TIME", "RUNNERS", "DATE", "LINK"}, rows)

			return nil
		},
	}
}
