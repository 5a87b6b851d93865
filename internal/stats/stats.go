// Package stats computes per-benchmark variance statistics and classifies
// measurement stability by coefficient of variation.
package stats

import (
	"math"
	"sort"

	"benchvar/internal/benchparse"
)

// Variance thresholds (CV %).
const (
	ThresholdGood       = 5.0
	ThresholdAcceptable = 10.0
	ThresholdWarning    = 15.0
	ThresholdHigh       = 30.0
)

// Category classifies a benchmark's variance quality.
type Category int

const (
	Good Category = iota
	Acceptable
	Warning
	High
	VeryHigh
)

func (c Category) String() string {
	switch c {
	case Good:
		return "good"
	case Acceptable:
		return "acceptable"
	case Warning:
		return "warning"
	case High:
		return "high"
	default:
		return "very_high"
	}
}

// Categorize maps a CV percentage onto its variance category.
func Categorize(cv float64) Category {
	switch {
	case cv < ThresholdGood:
		return Good
	case cv < ThresholdAcceptable:
		return Acceptable
	case cv < ThresholdWarning:
		return Warning
	case cv < ThresholdHigh:
		return High
	default:
		return VeryHigh
	}
}

// Stats holds the variance analysis for one benchmark.
type Stats struct {
	Name   string
	Count  int
	Mean   float64
	Stddev float64
	CV     float64 // coefficient of variation (%)
	Min    float64
	Max    float64
}

// Category returns the variance category for the benchmark's CV.
func (s Stats) Category() Category {
	return Categorize(s.CV)
}

// Passed reports whether the variance is acceptable (CV < 15%).
func (s Stats) Passed() bool {
	return s.CV < ThresholdWarning
}

// Compute groups samples by benchmark name and derives per-name statistics.
// Names with fewer than two samples are skipped; variance is undefined for
// them.
func Compute(samples []benchparse.Sample) map[string]Stats {
	grouped := make(map[string][]float64)
	for _, s := range samples {
		grouped[s.Name] = append(grouped[s.Name], s.NsPerOp)
	}

	result := make(map[string]Stats)
	for name, values := range grouped {
		if len(values) < 2 {
			continue
		}
		result[name] = compute(name, values)
	}

	return result
}

func compute(name string, values []float64) Stats {
	s := Stats{
		Name:  name,
		Count: len(values),
		Min:   values[0],
		Max:   values[0],
	}

	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	// Sample standard deviation (n-1 denominator).
	var sq float64
	for _, v := range values {
		d := v - s.Mean
		sq += d * d
	}
	s.Stddev = math.Sqrt(sq / float64(len(values)-1))

	if s.Mean > 0 {
		s.CV = s.Stddev / s.Mean * 100
	}

	return s
}

// FailingNames returns the benchmark names whose CV meets or exceeds the
// given threshold percentage, sorted for deterministic filter construction.
func FailingNames(all map[string]Stats, threshold float64) []string {
	var failed []string
	for name, s := range all {
		if s.CV >= threshold {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// Sorted returns the statistics ordered by name.
func Sorted(all map[string]Stats) []Stats {
	out := make([]Stats, 0, len(all))
	for _, s := range all {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CountByCategory tallies benchmarks per variance category.
func CountByCategory(all map[string]Stats) map[Category]int {
	counts := make(map[Category]int)
	for _, s := range all {
		counts[s.Category()]++
	}
	return counts
}
