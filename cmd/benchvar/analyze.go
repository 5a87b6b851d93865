package main

import (
	"benchvar/internal/benchparse"
	"benchvar/internal/report"
	"benchvar/internal/stats"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <report-file>",
	Short: "Analyze the variance of an existing benchmark report",
	Long: `Parses a saved 'go test -bench' report, computes per-benchmark
variance statistics, and prints a category breakdown plus the benchmarks
exceeding the threshold. The file is not modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Float64("variance-threshold", 15.0, "CV percentage above which a benchmark is unstable")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{"variance-threshold": "variance_threshold"})
	samples, err := benchparse.ParseSamplesFile(args[0])
	if err != nil {
		return err
	}

	all := stats.Compute(samples)
	out := cmd.OutOrStdout()
	report.StatsTable(out, all)
	report.VarianceAnalysis(out, all, viper.GetFloat64("variance_threshold"))
	return nil
}
