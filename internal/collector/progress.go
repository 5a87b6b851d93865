package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"benchvar/internal/benchparse"
)

// Reporter receives progress callbacks from the controller while a
// collection session runs. Callbacks arrive from the single controller
// goroutine, in order; implementations need no locking.
type Reporter interface {
	RunStarted(version, phase string, filters []string)
	Line(line string)
	RunFinished(phase string, exitCode int)
	RetryStarted(attempt, max int, failing []string)
	SessionDone(version string, unresolved []string)
}

// NopReporter discards all progress events.
type NopReporter struct{}

func (NopReporter) RunStarted(string, string, []string) {}
func (NopReporter) Line(string)                         {}
func (NopReporter) RunFinished(string, int)             {}
func (NopReporter) RetryStarted(int, int, []string)     {}
func (NopReporter) SessionDone(string, []string)        {}

// LogReporter forwards progress events to structured logging.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) RunStarted(version, phase string, filters []string) {
	r.Logger.Info("benchmark run started", "version", version, "phase", phase, "filters", filters)
}

func (r LogReporter) Line(string) {}

func (r LogReporter) RunFinished(phase string, exitCode int) {
	r.Logger.Info("benchmark run finished", "phase", phase, "exit_code", exitCode)
}

func (r LogReporter) RetryStarted(attempt, max int, failing []string) {
	r.Logger.Info("retrying high-variance benchmarks", "attempt", attempt, "max", max, "count", len(failing))
}

func (r LogReporter) SessionDone(version string, unresolved []string) {
	r.Logger.Info("collection session done", "version", version, "unresolved", len(unresolved))
}

// ConsoleReporter prints a live line-oriented progress feed: phase banners
// plus a completion tick per benchmark result observed on the stream.
type ConsoleReporter struct {
	Out io.Writer

	results int
}

func (r *ConsoleReporter) RunStarted(version, phase string, filters []string) {
	r.results = 0
	if len(filters) > 0 {
		fmt.Fprintf(r.Out, "[go %s] %s (filters: %s)\n", version, phase, strings.Join(filters, " "))
		return
	}
	fmt.Fprintf(r.Out, "[go %s] %s\n", version, phase)
}

func (r *ConsoleReporter) Line(line string) {
	if _, ok := benchparse.ParseLine(line); ok {
		r.results++
		fmt.Fprintf(r.Out, "\r  %d results", r.results)
	}
}

func (r *ConsoleReporter) RunFinished(phase string, exitCode int) {
	if r.results > 0 {
		fmt.Fprintln(r.Out)
	}
	if exitCode != 0 {
		fmt.Fprintf(r.Out, "  %s exited with status %d\n", phase, exitCode)
	}
}

func (r *ConsoleReporter) RetryStarted(attempt, max int, failing []string) {
	fmt.Fprintf(r.Out, "--- Retry %d/%d: %d high-variance benchmark(s) ---\n", attempt, max, len(failing))
}

func (r *ConsoleReporter) SessionDone(version string, unresolved []string) {
	if len(unresolved) == 0 {
		fmt.Fprintf(r.Out, "[go %s] all benchmarks within threshold\n", version)
		return
	}
	fmt.Fprintf(r.Out, "[go %s] %d benchmark(s) unresolved\n", version, len(unresolved))
}

// progressState is the persisted shape of the progress side file.
type progressState struct {
	Version    string    `json:"version"`
	Phase      string    `json:"phase"`
	Attempt    int       `json:"attempt,omitempty"`
	Results    int       `json:"results"`
	Unresolved []string  `json:"unresolved,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileReporter maintains a JSON progress file. It is written only by the
// single active controller, after each phase transition.
type FileReporter struct {
	Path string

	state progressState
}

func (r *FileReporter) flush() {
	r.state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(r.Path, data, 0o644) //nolint:errcheck // progress file is advisory
}

func (r *FileReporter) RunStarted(version, phase string, filters []string) {
	r.state.Version = version
	r.state.Phase = phase
	r.state.Results = 0
	r.flush()
}

func (r *FileReporter) Line(line string) {
	if _, ok := benchparse.ParseLine(line); ok {
		r.state.Results++
	}
}

func (r *FileReporter) RunFinished(phase string, exitCode int) {
	r.flush()
}

func (r *FileReporter) RetryStarted(attempt, max int, failing []string) {
	r.state.Attempt = attempt
	r.state.Unresolved = failing
	r.flush()
}

func (r *FileReporter) SessionDone(version string, unresolved []string) {
	r.state.Phase = "done"
	r.state.Unresolved = unresolved
	r.flush()
}

// MultiReporter fans progress events out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) RunStarted(version, phase string, filters []string) {
	for _, r := range m {
		r.RunStarted(version, phase, filters)
	}
}

func (m MultiReporter) Line(line string) {
	for _, r := range m {
		r.Line(line)
	}
}

func (m MultiReporter) RunFinished(phase string, exitCode int) {
	for _, r := range m {
		r.RunFinished(phase, exitCode)
	}
}

func (m MultiReporter) RetryStarted(attempt, max int, failing []string) {
	for _, r := range m {
		r.RetryStarted(attempt, max, failing)
	}
}

func (m MultiReporter) SessionDone(version string, unresolved []string) {
	for _, r := range m {
		r.SessionDone(version, unresolved)
	}
}
