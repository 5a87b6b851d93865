// Package collector orchestrates variance-aware benchmark collection: run,
// analyze, selectively re-run unstable benchmarks, and merge stable re-run
// results back into the canonical report.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"benchvar/internal/benchparse"
	"benchvar/internal/executor"
	"benchvar/internal/history"
	"benchvar/internal/merge"
	"benchvar/internal/report"
	"benchvar/internal/stats"
	"benchvar/internal/syscheck"
)

const timestampLayout = "2006-01-02_15-04-05"

// ErrInfrastructure marks failures of the collection machinery itself (build
// errors, timeouts, executor crashes) as opposed to variance failures, which
// drive the retry loop and are never errors.
var ErrInfrastructure = errors.New("infrastructure failure")

func infraf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInfrastructure, fmt.Sprintf(format, args...))
}

// Options are the tunables of a collection session.
type Options struct {
	Count      int           // samples per benchmark on the initial run
	RerunCount int           // samples per benchmark on retries
	MaxReruns  int           // retry budget
	BenchTime  string        // -benchtime per sample
	Threshold  float64       // CV %% above which a benchmark is unstable
	Timeout    time.Duration // wall-clock bound per invocation
	ResultsDir string
	BenchDir   string // benchmark module root the executor runs in
	Packages   []string
	SkipChecks bool
	SkipWarmup bool
}

// Session drives collection for one version at a time. A single goroutine
// owns it; versions run strictly sequentially so measurements cannot
// contaminate each other.
type Session struct {
	Opts     Options
	Exec     executor.Executor
	Reporter Reporter
	History  *history.Store // optional
	Logger   *slog.Logger
	Out      io.Writer

	now func() time.Time
}

// NewSession wires a session with the given collaborators.
func NewSession(opts Options, exec executor.Executor, logger *slog.Logger, out io.Writer) *Session {
	return &Session{
		Opts:     opts,
		Exec:     exec,
		Reporter: NopReporter{},
		Logger:   logger,
		Out:      out,
		now:      time.Now,
	}
}

// Result is the outcome of one version's session.
type Result struct {
	Version    string
	ReportPath string
	Unresolved []string
	Retries    int
	Stats      map[string]stats.Stats
}

// Clean reports whether every benchmark ended within the threshold.
func (r *Result) Clean() bool {
	return len(r.Unresolved) == 0
}

func platformKey() string {
	return runtime.GOOS + "_" + runtime.GOARCH
}

func (s *Session) versionDir(version string) string {
	return filepath.Join(s.Opts.ResultsDir, platformKey(), "go"+version)
}

// Collect runs the full pipeline for one version: pre-flight checks, warmup,
// initial collection, variance analysis, and the bounded retry loop that
// merges stabilized benchmarks back into the canonical report.
func (s *Session) Collect(ctx context.Context, version string) (*Result, error) {
	dir := s.versionDir(version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, infraf("creating results directory %s: %v", dir, err)
	}

	if !s.Opts.SkipChecks {
		warnings := syscheck.Run()
		for _, w := range warnings {
			s.Logger.Warn("system check warning", "check", w.Check, "detail", w.Detail)
		}
		if len(warnings) == 0 {
			s.Logger.Info("system checks passed")
		}
	}

	if !s.Opts.SkipWarmup {
		s.warmup(ctx, version)
	}

	started := s.now()
	reportPath := filepath.Join(dir, started.Format(timestampLayout)+".txt")

	report.Banner(s.Out, version)

	s.Reporter.RunStarted(version, "initial collection", nil)
	res, err := s.Exec.Run(ctx, executor.Request{
		Dir:       s.Opts.BenchDir,
		Count:     s.Opts.Count,
		BenchTime: s.Opts.BenchTime,
		Packages:  s.Opts.Packages,
		Timeout:   s.Opts.Timeout,
	}, s.Reporter.Line)
	if res != nil {
		s.Reporter.RunFinished("initial collection", res.ExitCode)
		if res.Output != "" {
			if werr := os.WriteFile(reportPath, []byte(res.Output), 0o644); werr != nil {
				return nil, infraf("writing report %s: %v", reportPath, werr)
			}
		}
	}
	if err != nil {
		s.recordSession(version, started, reportPath, 0, history.StatusFailed, nil, nil)
		return nil, infraf("initial collection for go %s: %v", version, err)
	}
	if res.ExitCode != 0 {
		s.recordSession(version, started, reportPath, 0, history.StatusFailed, nil, nil)
		return nil, infraf("initial collection for go %s exited with status %d (see %s)", version, res.ExitCode, reportPath)
	}

	samples, perr := benchparse.ParseSamples(strings.NewReader(res.Output))
	if perr != nil {
		return nil, infraf("parsing collection output: %v", perr)
	}
	allStats := stats.Compute(samples)
	report.VarianceAnalysis(s.Out, allStats, s.Opts.Threshold)
	failing := stats.FailingNames(allStats, s.Opts.Threshold)

	remaining, retries, retryErr := s.retryLoop(ctx, version, reportPath, failing)

	// Flush the unresolved set even when an interrupt cuts the loop short.
	if werr := writeFailedNames(reportPath, remaining); werr != nil {
		s.Logger.Error("failed to write unresolved benchmark list", "error", werr)
	}
	if retryErr != nil {
		s.recordSession(version, started, reportPath, retries, history.StatusFailed, remaining, nil)
		return nil, retryErr
	}

	final, ferr := s.finalStats(reportPath)
	if ferr != nil {
		s.Logger.Warn("could not recompute final statistics", "error", ferr)
		final = allStats
	}

	result := &Result{
		Version:    version,
		ReportPath: reportPath,
		Unresolved: remaining,
		Retries:    retries,
		Stats:      final,
	}

	status := history.StatusClean
	if !result.Clean() {
		status = history.StatusUnresolved
	}
	s.recordSession(version, started, reportPath, retries, status, remaining, final)
	s.Reporter.SessionDone(version, remaining)

	return result, nil
}

// Resume re-runs only the benchmarks named in a previously written
// unresolved-list file, merging stabilized results into the original
// canonical report rather than chaining retries onto each other.
func (s *Session) Resume(ctx context.Context, failedFile, version string) (*Result, error) {
	canonical, err := DeriveOriginalReport(failedFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(canonical); err != nil {
		return nil, fmt.Errorf("canonical report for %s: %w", failedFile, err)
	}

	names, err := ReadFailedNames(failedFile)
	if err != nil {
		return nil, err
	}

	started := s.now()
	report.Banner(s.Out, version)

	if len(names) == 0 {
		fmt.Fprintln(s.Out, "No unresolved benchmarks to re-run.")
		return &Result{Version: version, ReportPath: canonical}, nil
	}

	s.Logger.Info("resuming retry of unresolved benchmarks", "file", failedFile, "count", len(names))

	remaining, retries, retryErr := s.retryLoop(ctx, version, canonical, names)

	if werr := writeFailedNames(canonical, remaining); werr != nil {
		s.Logger.Error("failed to update unresolved benchmark list", "error", werr)
	}
	if retryErr != nil {
		s.recordSession(version, started, canonical, retries, history.StatusFailed, remaining, nil)
		return nil, retryErr
	}

	final, ferr := s.finalStats(canonical)
	if ferr != nil {
		return nil, infraf("recomputing statistics for %s: %v", canonical, ferr)
	}

	result := &Result{
		Version:    version,
		ReportPath: canonical,
		Unresolved: remaining,
		Retries:    retries,
		Stats:      final,
	}

	status := history.StatusClean
	if !result.Clean() {
		status = history.StatusUnresolved
	}
	s.recordSession(version, started, canonical, retries, status, remaining, final)
	s.Reporter.SessionDone(version, remaining)

	return result, nil
}

// retryLoop re-runs the failing set with the higher sample count until it
// drains or the retry budget runs out. Every merge targets the single
// canonical report; retries never merge into each other. A failed retry
// invocation aborts further retries but is not fatal to the session; the
// furthest-achieved state is reported.
func (s *Session) retryLoop(ctx context.Context, version, canonical string, failing []string) ([]string, int, error) {
	retries := 0
	for len(failing) > 0 && retries < s.Opts.MaxReruns {
		retries++
		s.Reporter.RetryStarted(retries, s.Opts.MaxReruns, failing)
		fmt.Fprintf(s.Out, "\n--- Retry %d/%d: re-running %d benchmark(s) with %d samples ---\n",
			retries, s.Opts.MaxReruns, len(failing), s.Opts.RerunCount)

		filters := BuildFilters(failing)
		s.Reporter.RunStarted(version, fmt.Sprintf("retry %d", retries), filters)
		res, err := s.Exec.Run(ctx, executor.Request{
			Dir:       s.Opts.BenchDir,
			Filters:   filters,
			Count:     s.Opts.RerunCount,
			BenchTime: s.Opts.BenchTime,
			Packages:  s.Opts.Packages,
			Timeout:   s.Opts.Timeout,
		}, s.Reporter.Line)
		if res != nil {
			s.Reporter.RunFinished(fmt.Sprintf("retry %d", retries), res.ExitCode)
		}
		if err != nil {
			if ctx.Err() != nil {
				return failing, retries, infraf("retry %d interrupted: %v", retries, err)
			}
			s.Logger.Error("retry invocation failed; keeping current results", "attempt", retries, "error", err)
			return failing, retries, nil
		}
		if res.ExitCode != 0 {
			s.Logger.Error("retry exited non-zero; keeping current results", "attempt", retries, "exit_code", res.ExitCode)
			return failing, retries, nil
		}

		retryPath := retryPathFor(canonical, retries)
		if werr := os.WriteFile(retryPath, []byte(res.Output), 0o644); werr != nil {
			s.Logger.Warn("could not persist retry output", "path", retryPath, "error", werr)
		}

		retrySamples, perr := benchparse.ParseSamples(strings.NewReader(res.Output))
		if perr != nil {
			return failing, retries, infraf("parsing retry output: %v", perr)
		}
		retryStats := stats.Compute(retrySamples)
		report.VarianceAnalysis(s.Out, retryStats, s.Opts.Threshold)

		var passed, remaining []string
		for _, name := range failing {
			if st, ok := retryStats[name]; ok && st.CV < s.Opts.Threshold {
				passed = append(passed, name)
			} else {
				remaining = append(remaining, name)
			}
		}

		if len(passed) > 0 {
			if err := s.mergeInto(canonical, res.Output, passed); err != nil {
				return failing, retries, err
			}
			s.Logger.Info("merged stabilized benchmarks into canonical report",
				"report", canonical, "merged", len(passed), "remaining", len(remaining))
		}

		failing = remaining
	}

	return failing, retries, nil
}

// mergeInto folds the authorized benchmarks from retry output into the
// canonical report file, backing the original up first.
func (s *Session) mergeInto(canonical, retryOutput string, authorized []string) error {
	original, err := benchparse.ParseReportFile(canonical)
	if err != nil {
		return infraf("parsing canonical report %s: %v", canonical, err)
	}
	retryReport, err := benchparse.ParseReport(strings.NewReader(retryOutput))
	if err != nil {
		return infraf("parsing retry report: %v", err)
	}

	merged, missing := merge.Merge(original, retryReport, authorized)
	merge.LogDiscrepancies(s.Logger, missing)

	if err := merge.BackupAndReplace(canonical, merged); err != nil {
		return infraf("replacing canonical report: %v", err)
	}
	return nil
}

func (s *Session) warmup(ctx context.Context, version string) {
	s.Logger.Info("running warmup", "version", version)
	s.Reporter.RunStarted(version, "warmup", nil)
	res, err := s.Exec.Run(ctx, executor.Request{
		Dir:       s.Opts.BenchDir,
		Count:     3,
		BenchTime: "1s",
		Packages:  s.Opts.Packages,
		Timeout:   s.Opts.Timeout,
	}, nil)
	exitCode := 0
	if res != nil {
		exitCode = res.ExitCode
	}
	s.Reporter.RunFinished("warmup", exitCode)
	if err != nil || exitCode != 0 {
		// Warmup trouble is not fatal; the real run will surface real
		// problems.
		s.Logger.Warn("warmup had issues, continuing", "error", err, "exit_code", exitCode)
	}
}

func (s *Session) finalStats(reportPath string) (map[string]stats.Stats, error) {
	samples, err := benchparse.ParseSamplesFile(reportPath)
	if err != nil {
		return nil, err
	}
	return stats.Compute(samples), nil
}

func (s *Session) recordSession(version string, started time.Time, reportPath string, retries int, status string, unresolved []string, final map[string]stats.Stats) {
	if s.History == nil {
		return
	}

	var measurements []history.Measurement
	for _, st := range stats.Sorted(final) {
		measurements = append(measurements, history.Measurement{
			Name:     st.Name,
			Samples:  st.Count,
			Mean:     st.Mean,
			CV:       st.CV,
			Category: st.Category().String(),
		})
	}

	if _, err := s.History.RecordSession(history.SessionRecord{
		Version:    version,
		StartedAt:  started,
		ReportPath: reportPath,
		Retries:    retries,
		Status:     status,
		Unresolved: unresolved,
	}, measurements); err != nil {
		s.Logger.Warn("could not record session history", "error", err)
	}
}

func retryPathFor(canonical string, attempt int) string {
	stem := strings.TrimSuffix(canonical, filepath.Ext(canonical))
	return fmt.Sprintf("%s_retry%d.txt", stem, attempt)
}
