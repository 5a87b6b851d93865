package main

import (
	"fmt"
	"log/slog"

	"benchvar/internal/benchparse"
	"benchvar/internal/merge"

	"github.com/spf13/cobra"
)

var (
	mergeOutput  string
	mergeInPlace bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <original-report> <rerun-report> [benchmarks...]",
	Short: "Merge re-run benchmark results into an original report",
	Long: `Replaces the result lines of the named benchmarks in the original
report with the lines from the re-run report, preserving the original's
ordering, headers, and footers. Without explicit benchmark names every
benchmark present in the re-run report is merged. Names listed but absent
from the re-run report are logged and left untouched.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "Write the merged report to this file (default: stdout)")
	mergeCmd.Flags().BoolVar(&mergeInPlace, "in-place", false, "Replace the original report, keeping a .backup copy")
}

func runMerge(cmd *cobra.Command, args []string) error {
	original, err := benchparse.ParseReportFile(args[0])
	if err != nil {
		return fmt.Errorf("parsing original report: %w", err)
	}
	rerun, err := benchparse.ParseReportFile(args[1])
	if err != nil {
		return fmt.Errorf("parsing rerun report: %w", err)
	}

	authorized := args[2:]
	if len(authorized) == 0 {
		authorized = rerun.BenchmarkNames()
	}

	merged, missing := merge.Merge(original, rerun, authorized)
	merge.LogDiscrepancies(slog.Default(), missing)

	switch {
	case mergeInPlace:
		if err := merge.BackupAndReplace(args[0], merged); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged into %s (backup at %s.backup)\n", args[0], args[0])
	case mergeOutput != "":
		if err := merge.WriteReport(mergeOutput, merged); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged report written to %s\n", mergeOutput)
	default:
		if _, err := merged.WriteTo(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	return nil
}
