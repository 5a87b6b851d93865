package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"benchvar/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var resumeGoVersion string

var resumeCmd = &cobra.Command{
	Use:   "resume <failed-benchmarks-file>",
	Short: "Re-run the unresolved benchmarks from a previous session",
	Long: `Reads a *_failed_benchmarks.txt file left behind by collect, re-runs
only the benchmarks it names, and merges stabilized results into the
original report the file belongs to. Retries always target that original
report; they never chain onto each other.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().StringVar(&resumeGoVersion, "go-version", "", "Go version to run with (default: derived from the file path)")
	resumeCmd.Flags().Int("rerun-count", 30, "Samples per benchmark on retries")
	resumeCmd.Flags().Int("max-reruns", 2, "Retry budget")
	resumeCmd.Flags().Float64("variance-threshold", 15.0, "CV percentage above which a benchmark is unstable")
}

func runResume(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{
		"rerun-count":        "rerun_count",
		"max-reruns":         "max_reruns",
		"variance-threshold": "variance_threshold",
	})
	if err := config.ValidateConfig(); err != nil {
		return err
	}

	failedFile := args[0]
	version := resumeGoVersion
	if version == "" {
		var err error
		version, err = versionFromPath(failedFile)
		if err != nil {
			return err
		}
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	goBin, err := findToolchain(viper.GetString("toolchain_dir"), version)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := newSession(cmd, store, goBin)
	result, err := session.Resume(ctx, failedFile, version)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nReport for go %s: %s\n", version, result.ReportPath)
	if !result.Clean() {
		return fmt.Errorf("%d benchmark(s) still unresolved", len(result.Unresolved))
	}
	return nil
}

// versionFromPath extracts the Go version from the results layout, where
// reports live under <results-dir>/<platform>/go<version>/.
func versionFromPath(path string) (string, error) {
	dir := filepath.Base(filepath.Dir(path))
	if v, ok := strings.CutPrefix(dir, "go"); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("cannot derive Go version from %s; pass --go-version", path)
}
