package benchparse

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Sample represents a single benchmark result line.
type Sample struct {
	Name        string  `json:"name"`
	Iterations  int64   `json:"iterations"`
	NsPerOp     float64 `json:"ns_per_op"`
	BytesPerOp  int64   `json:"bytes_per_op"`
	AllocsPerOp int64   `json:"allocs_per_op"`
}

var (
	// Matches standard Go benchmark result lines. The -N parallelism suffix is
	// required and stripped from the name:
	// BenchmarkName-16   1000000   1234.5 ns/op   256 B/op   4 allocs/op
	resultRegex = regexp.MustCompile(`^(Benchmark\S+?)-\d+\s+(\d+)\s+([0-9]+(?:\.[0-9]+)?)\s+ns/op(?:\s+([0-9.]+)\s+MB/s)?(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`)

	parallelismSuffix = regexp.MustCompile(`-\d+$`)
)

// ParseLine parses one report line into a Sample. The second return value is
// false for lines that are not benchmark results.
func ParseLine(line string) (Sample, bool) {
	m := resultRegex.FindStringSubmatch(line)
	if m == nil {
		return Sample{}, false
	}

	s := Sample{Name: m[1]}

	if v, err := strconv.ParseInt(m[2], 10, 64); err == nil {
		s.Iterations = v
	}
	if v, err := strconv.ParseFloat(m[3], 64); err == nil {
		s.NsPerOp = v
	}
	if m[5] != "" {
		if v, err := strconv.ParseInt(m[5], 10, 64); err == nil {
			s.BytesPerOp = v
		}
	}
	if m[6] != "" {
		if v, err := strconv.ParseInt(m[6], 10, 64); err == nil {
			s.AllocsPerOp = v
		}
	}

	return s, true
}

// ParseSamples extracts the flat sequence of benchmark samples from
// line-oriented report text. Lines that do not match the result shape are
// skipped.
func ParseSamples(r io.Reader) ([]Sample, error) {
	var samples []Sample

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if s, ok := ParseLine(scanner.Text()); ok {
			samples = append(samples, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// ParseSamplesFile reads samples from a report file on disk.
func ParseSamplesFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseSamples(f)
}

// StripParallelism removes the trailing -N execution parallelism marker from
// a benchmark name, if present.
func StripParallelism(name string) string {
	return parallelismSuffix.ReplaceAllString(name, "")
}

// benchName extracts the grouping name from a line that begins a benchmark
// block, stripping the parallelism suffix. Used for section structure; lines
// here may or may not be full result lines.
func benchName(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return StripParallelism(fields[0])
}
