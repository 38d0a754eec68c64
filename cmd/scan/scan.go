// Package scan implements the read-only discovery preview command.
package scan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/detect"
	"github.com/zhu-jl18/vidrename-go/internal/pipeline"
)

// Command creates the scan command. It runs the same discovery pass as
// rename but stops there, so nothing on disk is touched and the vision
// service is never contacted.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Preview which files would be picked up for renaming",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detector := detect.New(settings.Scanner.MinHexLength)
			disc, err := pipeline.Discover(args[0], &settings.Scanner, settings.Input.Recursive, detector)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, entry := range disc.Candidates {
				fmt.Fprintf(out, "rename  %s (%s)\n", entry.Path, formatSize(entry.Size))
			}
			for _, entry := range disc.Skipped {
				fmt.Fprintf(out, "keep    %s\n", entry.Path)
			}
			for _, entry := range disc.TooSmall {
				fmt.Fprintf(out, "small   %s (%s)\n", entry.Path, formatSize(entry.Size))
			}

			fmt.Fprintf(out, "\n%d to rename, %d already readable, %d below size floor\n",
				len(disc.Candidates), len(disc.Skipped), len(disc.TooSmall))
			return nil
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// formatSize renders a byte count the way ls -h does.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// setupFlags configures flags specific to the scan command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVarP(&settings.Input.Recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().Int64Var(&settings.Scanner.MinSize, "min-size", viper.GetInt64("scanner.minsize"), "Minimum file size in bytes to consider")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
