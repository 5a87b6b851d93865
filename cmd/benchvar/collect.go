package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"benchvar/internal/collector"
	"benchvar/internal/config"
	"benchvar/internal/executor"
	"benchvar/internal/history"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var collectProgressFile string

// Stub points for tests.
var findToolchain = func(dir, version string) (string, error) {
	return executor.Toolchain{Dir: dir}.Find(version)
}
var newExecutor = func(goBin string) executor.Executor {
	return executor.NewGoExecutor(goBin)
}

var collectCmd = &cobra.Command{
	Use:   "collect [go-versions...]",
	Short: "Collect benchmark results with variance-driven retries",
	Long: `Runs the benchmark suite for each named Go version in turn. After the
initial run the coefficient of variation of every benchmark is computed;
benchmarks above the threshold are re-run with a higher sample count and,
once stable, merged back into the canonical report. Versions run strictly
sequentially so measurements cannot contaminate each other.

With no arguments the Go toolchain on PATH is used.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().Int("count", 20, "Samples per benchmark on the initial run")
	collectCmd.Flags().Int("rerun-count", 30, "Samples per benchmark on retries")
	collectCmd.Flags().Int("max-reruns", 2, "Retry budget per version")
	collectCmd.Flags().String("benchtime", "3s", "Value passed to -benchtime")
	collectCmd.Flags().Float64("variance-threshold", 15.0, "CV percentage above which a benchmark is unstable")
	collectCmd.Flags().Duration("timeout", 30*time.Minute, "Wall-clock bound per go test invocation")
	collectCmd.Flags().String("results-dir", "benchmark_results", "Directory for report files")
	collectCmd.Flags().String("bench-dir", ".", "Benchmark module root to run in")
	collectCmd.Flags().StringSlice("packages", []string{"."}, "Packages to benchmark")
	collectCmd.Flags().String("toolchain-dir", "", "Directory holding go<version>/ toolchain installs")
	collectCmd.Flags().String("history-db", "", "SQLite file for session history (disabled when empty)")
	collectCmd.Flags().Bool("skip-checks", false, "Skip pre-flight system checks")
	collectCmd.Flags().Bool("skip-warmup", false, "Skip the warmup run")
	collectCmd.Flags().StringVar(&collectProgressFile, "progress", "", "Write live progress as JSON to this file")
}

func runCollect(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{
		"count":              "count",
		"rerun-count":        "rerun_count",
		"max-reruns":         "max_reruns",
		"benchtime":          "bench_time",
		"variance-threshold": "variance_threshold",
		"timeout":            "timeout",
		"results-dir":        "results_dir",
		"bench-dir":          "bench_dir",
		"packages":           "packages",
		"toolchain-dir":      "toolchain_dir",
		"history-db":         "history_db",
		"skip-checks":        "skip_checks",
		"skip-warmup":        "skip_warmup",
	})
	if err := config.ValidateConfig(); err != nil {
		return err
	}

	versions := args
	if len(versions) == 0 {
		versions = []string{hostGoVersion()}
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var unclean []string
	for _, version := range versions {
		result, err := collectVersion(ctx, cmd, store, version)
		if err != nil {
			slog.Error("collection failed", "version", version, "error", err)
			unclean = append(unclean, version)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if !result.Clean() {
			unclean = append(unclean, version)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nReport for go %s: %s\n", version, result.ReportPath)
	}

	if len(unclean) > 0 {
		return fmt.Errorf("collection incomplete for: %s", strings.Join(unclean, ", "))
	}
	return nil
}

func collectVersion(ctx context.Context, cmd *cobra.Command, store *history.Store, version string) (*collector.Result, error) {
	goBin, err := findToolchain(viper.GetString("toolchain_dir"), version)
	if err != nil {
		return nil, err
	}

	session := newSession(cmd, store, goBin)
	return session.Collect(ctx, version)
}

func newSession(cmd *cobra.Command, store *history.Store, goBin string) *collector.Session {
	session := collector.NewSession(sessionOptions(), newExecutor(goBin), slog.Default(), cmd.OutOrStdout())
	session.History = store

	reporters := collector.MultiReporter{
		&collector.ConsoleReporter{Out: cmd.OutOrStdout()},
		collector.LogReporter{Logger: slog.Default()},
	}
	if collectProgressFile != "" {
		reporters = append(reporters, &collector.FileReporter{Path: collectProgressFile})
	}
	session.Reporter = reporters
	return session
}

func sessionOptions() collector.Options {
	return collector.Options{
		Count:      viper.GetInt("count"),
		RerunCount: viper.GetInt("rerun_count"),
		MaxReruns:  viper.GetInt("max_reruns"),
		BenchTime:  viper.GetString("bench_time"),
		Threshold:  viper.GetFloat64("variance_threshold"),
		Timeout:    viper.GetDuration("timeout"),
		ResultsDir: viper.GetString("results_dir"),
		BenchDir:   viper.GetString("bench_dir"),
		Packages:   viper.GetStringSlice("packages"),
		SkipChecks: viper.GetBool("skip_checks"),
		SkipWarmup: viper.GetBool("skip_warmup"),
	}
}

func openHistory() (*history.Store, error) {
	path := viper.GetString("history_db")
	if path == "" {
		return nil, nil
	}
	store, err := history.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return store, nil
}

func hostGoVersion() string {
	return strings.TrimPrefix(runtime.Version(), "go")
}
