package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"benchvar/internal/history"
	"benchvar/internal/report"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize past collection sessions per Go version",
	Long: `Shows the most recent collection outcome for every Go version. Reads
the history database when one is configured, otherwise falls back to
scanning the results directory for report files.`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().String("history-db", "", "SQLite file for session history")
	summaryCmd.Flags().String("results-dir", "benchmark_results", "Directory holding report files")
}

func runSummary(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{
		"history-db":  "history_db",
		"results-dir": "results_dir",
	})
	var summaries []history.VersionSummary

	if path := viper.GetString("history_db"); path != "" {
		store, err := history.NewStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		summaries, err = store.Summary()
		if err != nil {
			return err
		}
	} else {
		var err error
		summaries, err = scanResults(viper.GetString("results_dir"))
		if err != nil {
			return err
		}
	}

	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No collection sessions found.")
		return nil
	}

	report.SummaryTable(cmd.OutOrStdout(), summaries)
	return nil
}

// scanResults reconstructs per-version summaries from the report files in
// <results-dir>/<platform>/go<version>/. Used when no history database is
// configured.
func scanResults(resultsDir string) ([]history.VersionSummary, error) {
	platforms, err := os.ReadDir(resultsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading results directory: %w", err)
	}

	var summaries []history.VersionSummary
	for _, platform := range platforms {
		if !platform.IsDir() {
			continue
		}
		versionDirs, err := os.ReadDir(filepath.Join(resultsDir, platform.Name()))
		if err != nil {
			continue
		}
		for _, vd := range versionDirs {
			version, ok := strings.CutPrefix(vd.Name(), "go")
			if !ok || !vd.IsDir() {
				continue
			}
			dir := filepath.Join(resultsDir, platform.Name(), vd.Name())
			summary, found := summarizeVersionDir(dir, version)
			if found {
				summaries = append(summaries, summary)
			}
		}
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Version < summaries[j].Version })
	return summaries, nil
}

func summarizeVersionDir(dir, version string) (history.VersionSummary, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return history.VersionSummary{}, false
	}

	var reports []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".txt") {
			continue
		}
		if strings.Contains(name, "_retry") || strings.HasSuffix(name, "_failed_benchmarks.txt") {
			continue
		}
		reports = append(reports, name)
	}
	if len(reports) == 0 {
		return history.VersionSummary{}, false
	}
	sort.Strings(reports)
	latest := reports[len(reports)-1]

	summary := history.VersionSummary{
		Version:    version,
		Sessions:   len(reports),
		LastStatus: history.StatusClean,
		ReportPath: filepath.Join(dir, latest),
	}
	if info, err := os.Stat(summary.ReportPath); err == nil {
		summary.LastRun = info.ModTime()
	} else {
		summary.LastRun = time.Now()
	}

	failedFile := strings.TrimSuffix(summary.ReportPath, ".txt") + "_failed_benchmarks.txt"
	if data, err := os.ReadFile(failedFile); err == nil {
		names := strings.Fields(strings.TrimSpace(string(data)))
		if len(names) > 0 {
			summary.LastStatus = history.StatusUnresolved
			summary.Unresolved = len(names)
		}
	}

	return summary, true
}
