// Package undo implements journal-based rename reversal.
package undo

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zhu-jl18/vidrename-go/internal/journal"
)

// Command creates the undo command.
func Command() *cobra.Command {
	var dryRun bool
	var reversalPath string

	cmd := &cobra.Command{
		Use:   "undo [journal]",
		Short: "Revert the renames recorded in a journal file",
		Long: "Walk a rename journal backwards and restore the original file names. " +
			"Files that were moved or replaced since the batch ran are left untouched.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := journal.Undo(args[0], reversalPath, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "Undo plan: %d reversible, %d no longer revertible\n",
					result.Planned, result.Skipped)
			} else {
				fmt.Fprintf(out, "Undo complete: %d reverted, %d no longer revertible, %d failed\n",
					result.Reverted, result.Skipped, result.Failed)
			}
			if result.JournalPath != "" {
				fmt.Fprintf(out, "Reversal journal written to %s\n", result.JournalPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be reverted without renaming")
	cmd.Flags().StringVar(&reversalPath, "journal", "", "Path for the reversal journal (empty for a timestamped default)")

	return cmd
}
