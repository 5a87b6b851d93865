package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"benchvar/internal/executor"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stableBenchOutput = `goos: linux
goarch: amd64
pkg: example.com/demo
cpu: Intel(R) Xeon(R) CPU @ 2.80GHz
BenchmarkEncode-16    	 1000000	       100.0 ns/op	      16 B/op	       1 allocs/op
BenchmarkEncode-16    	 1000000	       100.5 ns/op	      16 B/op	       1 allocs/op
BenchmarkEncode-16    	 1000000	        99.5 ns/op	      16 B/op	       1 allocs/op
PASS
ok  	example.com/demo	3.210s
`

// stubExecutor replays canned output for every invocation.
type stubExecutor struct {
	output   string
	exitCode int
	err      error
	requests []executor.Request
}

func (s *stubExecutor) Run(ctx context.Context, req executor.Request, onLine func(string)) (*executor.Result, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if onLine != nil {
		for _, line := range strings.Split(strings.TrimRight(s.output, "\n"), "\n") {
			onLine(line)
		}
	}
	return &executor.Result{Output: s.output, ExitCode: s.exitCode}, nil
}

func setupCollectTest(t *testing.T, stub *stubExecutor) *cobra.Command {
	t.Helper()

	origFind := findToolchain
	origNew := newExecutor
	t.Cleanup(func() {
		findToolchain = origFind
		newExecutor = origNew
		viper.Reset()
	})

	findToolchain = func(dir, version string) (string, error) { return "/usr/bin/go", nil }
	newExecutor = func(goBin string) executor.Executor { return stub }

	viper.Reset()
	viper.Set("count", 5)
	viper.Set("rerun_count", 10)
	viper.Set("max_reruns", 2)
	viper.Set("bench_time", "1s")
	viper.Set("variance_threshold", 15.0)
	viper.Set("timeout", 5*time.Minute)
	viper.Set("results_dir", t.TempDir())
	viper.Set("bench_dir", ".")
	viper.Set("packages", []string{"."})
	viper.Set("skip_checks", true)
	viper.Set("skip_warmup", true)

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

func TestRunCollectStable(t *testing.T) {
	stub := &stubExecutor{output: stableBenchOutput}
	cmd := setupCollectTest(t, stub)
	var out bytes.Buffer
	cmd.SetOut(&out)

	err := runCollect(cmd, []string{"1.24"})
	require.NoError(t, err)

	require.Len(t, stub.requests, 1)
	assert.Equal(t, 5, stub.requests[0].Count)
	assert.Contains(t, out.String(), "Report for go 1.24")

	// The report file lands under <results>/<platform>/go1.24/.
	matches, err := filepath.Glob(filepath.Join(viper.GetString("results_dir"), "*", "go1.24", "*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	content, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, stableBenchOutput, string(content))
}

func TestRunCollectSequentialVersions(t *testing.T) {
	stub := &stubExecutor{output: stableBenchOutput}
	cmd := setupCollectTest(t, stub)

	err := runCollect(cmd, []string{"1.23", "1.24"})
	require.NoError(t, err)
	assert.Len(t, stub.requests, 2)
}

func TestRunCollectToolchainMissing(t *testing.T) {
	stub := &stubExecutor{output: stableBenchOutput}
	cmd := setupCollectTest(t, stub)
	findToolchain = func(dir, version string) (string, error) {
		return "", fmt.Errorf("go %s not found", version)
	}

	err := runCollect(cmd, []string{"1.24"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection incomplete for: 1.24")
}

func TestRunCollectInfraFailureDoesNotStopLaterVersions(t *testing.T) {
	stub := &stubExecutor{output: "build failed", exitCode: 1}
	cmd := setupCollectTest(t, stub)

	err := runCollect(cmd, []string{"1.23", "1.24"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1.23")
	assert.Contains(t, err.Error(), "1.24")
	// Both versions were attempted.
	assert.Len(t, stub.requests, 2)
}

func TestRunCollectInvalidConfig(t *testing.T) {
	stub := &stubExecutor{output: stableBenchOutput}
	cmd := setupCollectTest(t, stub)
	viper.Set("count", -1)

	err := runCollect(cmd, []string{"1.24"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count must be positive")
}

func TestHostGoVersion(t *testing.T) {
	v := hostGoVersion()
	assert.NotEmpty(t, v)
	assert.NotContains(t, v, "go")
}
