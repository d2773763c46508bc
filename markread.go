package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMarkReadCmd() *cobra.Command {
	var (
		flagAll   bool
		flagLevel string
		flagVars  []string
	)

	cmd := &cobra.Command{
		Use:   "mark-read [game-id category-id]",
		Short: "Clear new-record flags",
		Long: `Clears the new-record flag on one run, identified like untrack, or on
everything with --all. Clearing a flag also drops its history entries.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			store, writer, err := loadStore(logger)
			if err != nil {
				return err
			}

			switch {
			case flagAll:
				store.MarkAllRead()
				statusf("Marked all records read.\n")
			case len(args) == 2:
				key, err := keyFromFlags(args[1], flagVars)
				if err != nil {
					return err
				}

				if !store.MarkRead(args[0], key, flagLevel) {
					return fmt.Errorf("no unread record matches this configuration")
				}

				statusf("Marked %s read.\n", key)
			default:
				return fmt.Errorf("pass a game id and category id, or --all")
			}

			return writer.Flush(store)
		},
	}

	cmd.Flags().BoolVar(&flagAll, "all", false, "mark every record read")
	cmd.Flags().StringVar(&flagLevel, "level", "", "level id of the tracked run")
	cmd.Flags().StringArrayVar(&flagVars, "var", nil, "subcategory selection as <variable-id>=<value-id> (repeatable)")

	return cmd
}
