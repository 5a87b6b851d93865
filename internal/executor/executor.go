// Package executor invokes the benchmark suite as a subprocess and streams
// its combined output back to the caller line by line.
package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// killGracePeriod is how long a cancelled benchmark process gets to exit
// after SIGTERM before it is killed.
const killGracePeriod = 10 * time.Second

// Request describes one benchmark suite invocation.
type Request struct {
	Dir       string        // working directory (benchmark module root)
	Filters   []string      // -bench expressions; empty means run everything
	Count     int           // -count samples per benchmark
	BenchTime string        // -benchtime per sample
	Packages  []string      // package patterns to test
	Timeout   time.Duration // wall-clock bound for the whole invocation
}

// Result carries the exit status and combined output of an invocation.
type Result struct {
	Output   string
	ExitCode int
}

// Executor runs a benchmark request, invoking onLine for every output line
// in arrival order before the call returns. Implementations block until the
// subprocess exits or ctx is done.
type Executor interface {
	Run(ctx context.Context, req Request, onLine func(string)) (*Result, error)
}

// GoExecutor runs benchmarks through `go test -bench`.
type GoExecutor struct {
	GoBin string // resolved go binary for the target version
}

// NewGoExecutor returns an executor bound to the given go binary.
func NewGoExecutor(goBin string) *GoExecutor {
	return &GoExecutor{GoBin: goBin}
}

// Run executes the request. When the request carries multiple filter
// expressions, `go test` is invoked once per expression and the outputs
// concatenate; a single alternation cannot express a mixed set of top-level
// and parent/sub selections without dropping the top-level ones.
func (e *GoExecutor) Run(ctx context.Context, req Request, onLine func(string)) (*Result, error) {
	filters := req.Filters
	if len(filters) == 0 {
		filters = []string{"."}
	}

	combined := &Result{}
	for _, filter := range filters {
		res, err := e.runOne(ctx, req, filter, onLine)
		if res != nil {
			combined.Output += res.Output
			if combined.ExitCode == 0 {
				combined.ExitCode = res.ExitCode
			}
		}
		if err != nil {
			return combined, err
		}
	}

	return combined, nil
}

func (e *GoExecutor) runOne(ctx context.Context, req Request, filter string, onLine func(string)) (*Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := []string{
		"test",
		"-bench=" + filter,
		"-benchmem",
		fmt.Sprintf("-count=%d", req.Count),
		"-benchtime=" + req.BenchTime,
	}
	if req.Timeout > 0 {
		args = append(args, "-timeout="+req.Timeout.String())
	}
	args = append(args, req.Packages...)

	cmd := exec.CommandContext(ctx, e.GoBin, args...)
	cmd.Dir = req.Dir
	cmd.Env = append(os.Environ(), "GOTOOLCHAIN=local")

	// Graceful termination: SIGTERM on cancel, SIGKILL after the grace
	// period if the process lingers.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGracePeriod

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("starting %s test: %w", e.GoBin, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	// The stream is consumed here, in the caller's flow, line by line in
	// arrival order.
	var out strings.Builder
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		out.WriteString(line)
		out.WriteByte('\n')
		if onLine != nil {
			onLine(line)
		}
	}
	scanErr := scanner.Err()

	err := <-waitErr
	pr.Close()

	res := &Result{Output: out.String()}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return res, fmt.Errorf("benchmark run interrupted: %w", ctx.Err())
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			return res, fmt.Errorf("running %s test: %w", e.GoBin, err)
		}
	}
	if scanErr != nil {
		return res, fmt.Errorf("reading benchmark output: %w", scanErr)
	}

	return res, nil
}
