package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub creates an executable script standing in for a go binary.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "go")
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestGoExecutorRunStreamsLines(t *testing.T) {
	bin := writeStub(t, `echo "goos: linux"
echo "BenchmarkFake-8    100    50.0 ns/op"
echo "PASS"
`)

	var streamed []string
	exec := NewGoExecutor(bin)
	res, err := exec.Run(context.Background(), Request{
		Count:     3,
		BenchTime: "1s",
		Packages:  []string{"./..."},
	}, func(line string) {
		streamed = append(streamed, line)
	})

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "BenchmarkFake-8")
	require.Len(t, streamed, 3)
	assert.Equal(t, "goos: linux", streamed[0])
	assert.Equal(t, "PASS", streamed[2])
}

func TestGoExecutorRunNonZeroExit(t *testing.T) {
	bin := writeStub(t, `echo "# benchvar/testdata [build failed]"
exit 2
`)

	exec := NewGoExecutor(bin)
	res, err := exec.Run(context.Background(), Request{Count: 1, BenchTime: "1s"}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, res.Output, "build failed")
}

func TestGoExecutorRunOncePerFilter(t *testing.T) {
	// Echo the -bench argument so each invocation is visible in the output.
	bin := writeStub(t, `echo "$2"
`)

	exec := NewGoExecutor(bin)
	res, err := exec.Run(context.Background(), Request{
		Count:     1,
		BenchTime: "1s",
		Filters:   []string{"^(BenchmarkTop)$", "^(BenchmarkParent)$/^(SubA)$"},
	}, nil)

	require.NoError(t, err)
	assert.Contains(t, res.Output, "-bench=^(BenchmarkTop)$")
	assert.Contains(t, res.Output, "-bench=^(BenchmarkParent)$/^(SubA)$")
}

func TestGoExecutorRunTimeout(t *testing.T) {
	bin := writeStub(t, `sleep 30
`)

	exec := NewGoExecutor(bin)
	start := time.Now()
	_, err := exec.Run(context.Background(), Request{
		Count:     1,
		BenchTime: "1s",
		Timeout:   200 * time.Millisecond,
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 15*time.Second)
}

func TestGoExecutorRunCancellation(t *testing.T) {
	bin := writeStub(t, `sleep 30
`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	exec := NewGoExecutor(bin)
	_, err := exec.Run(ctx, Request{Count: 1, BenchTime: "1s"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToolchainFindConfiguredDir(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "go1.24", "bin", "go")
	require.NoError(t, os.MkdirAll(filepath.Dir(bin), 0o755))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	orig := runCommand
	defer func() { runCommand = orig }()
	runCommand = func(cmd string, args ...string) (string, error) {
		if cmd == bin {
			return "go version go1.24.1 linux/amd64", nil
		}
		return "", fmt.Errorf("unexpected binary %s", cmd)
	}

	tc := Toolchain{Dir: dir}
	found, err := tc.Find("1.24")
	require.NoError(t, err)
	assert.Equal(t, bin, found)
}

func TestToolchainFindMissing(t *testing.T) {
	orig := runCommand
	defer func() { runCommand = orig }()
	runCommand = func(cmd string, args ...string) (string, error) {
		return "", fmt.Errorf("no such version")
	}

	tc := Toolchain{Dir: t.TempDir()}
	_, err := tc.Find("1.99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "toolchain not found")
}

func TestToolchainRejectsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "go1.24", "bin", "go")
	require.NoError(t, os.MkdirAll(filepath.Dir(bin), 0o755))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	orig := runCommand
	defer func() { runCommand = orig }()
	runCommand = func(cmd string, args ...string) (string, error) {
		return "go version go1.23.0 linux/amd64", nil
	}

	tc := Toolchain{Dir: dir}
	_, err := tc.Find("1.24")
	require.Error(t, err)
}
