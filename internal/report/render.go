// Package report renders variance analysis and collection summaries for
// human consumption.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"benchvar/internal/history"
	"benchvar/internal/stats"
)

// Styles
var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("228")). // Yellow
			Padding(0, 1)
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // Green
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // Orange
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // Red
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")) // Grey
)

// Banner renders the per-version collection banner.
func Banner(w io.Writer, version string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, bannerStyle.Render(fmt.Sprintf("Go %s Benchmark Collection", version)))
	fmt.Fprintln(w, line)
}

// VarianceAnalysis renders per-category counts and the failing benchmark
// list for one analysis pass.
func VarianceAnalysis(w io.Writer, all map[string]stats.Stats, threshold float64) {
	if len(all) == 0 {
		fmt.Fprintln(w, warnStyle.Render("Warning: no benchmark data found for variance analysis"))
		return
	}

	counts := stats.CountByCategory(all)

	fmt.Fprintf(w, "\nVariance Analysis (%d benchmarks):\n", len(all))
	fmt.Fprintf(w, "  Good (CV < 5%%):       %d\n", counts[stats.Good])
	fmt.Fprintf(w, "  Acceptable (5-10%%):   %d\n", counts[stats.Acceptable])
	fmt.Fprintf(w, "  Warning (10-15%%):     %d\n", counts[stats.Warning])
	fmt.Fprintf(w, "  High (15-30%%):        %d\n", counts[stats.High])
	fmt.Fprintf(w, "  Very High (>= 30%%):   %d\n", counts[stats.VeryHigh])

	var failing []stats.Stats
	for _, s := range all {
		if s.CV >= threshold {
			failing = append(failing, s)
		}
	}

	if len(failing) == 0 {
		fmt.Fprintln(w, goodStyle.Render(fmt.Sprintf("\nAll benchmarks within variance threshold (< %.0f%%)", threshold)))
		return
	}

	sort.Slice(failing, func(i, j int) bool { return failing[i].CV > failing[j].CV })

	fmt.Fprintf(w, "\nHigh-variance benchmarks (CV >= %.0f%%):\n", threshold)
	for _, s := range failing {
		severity := "high"
		style := warnStyle
		if s.CV >= stats.ThresholdHigh {
			severity = "unreliable"
			style = failStyle
		}
		fmt.Fprintf(w, "  %s: %s CV, %d samples, mean %s ns/op (%s)\n",
			s.Name,
			style.Render(fmt.Sprintf("%.1f%%", s.CV)),
			s.Count,
			humanize.CommafWithDigits(s.Mean, 1),
			severity)
	}
}

// StatsTable renders the full per-benchmark table sorted by name.
func StatsTable(w io.Writer, all map[string]stats.Stats) {
	for _, s := range stats.Sorted(all) {
		category := s.Category().String()
		label := dimStyle.Render(category)
		switch s.Category() {
		case stats.Good:
			label = goodStyle.Render(category)
		case stats.High:
			label = warnStyle.Render(category)
		case stats.VeryHigh:
			label = failStyle.Render(category)
		}
		fmt.Fprintf(w, "%-50s %3d samples  mean %12s  stddev %10.1f  CV %6.2f%%  %s\n",
			s.Name, s.Count, humanize.CommafWithDigits(s.Mean, 1), s.Stddev, s.CV, label)
	}
}

// SummaryTable renders the per-version collection history summary.
func SummaryTable(w io.Writer, summaries []history.VersionSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No collection sessions recorded yet."))
		return
	}

	for _, vs := range summaries {
		status := vs.LastStatus
		switch status {
		case history.StatusClean:
			status = goodStyle.Render(status)
		case history.StatusUnresolved:
			status = warnStyle.Render(status)
		case history.StatusFailed:
			status = failStyle.Render(status)
		}

		fmt.Fprintf(w, "Go %s: %d session(s), last %s (%s)\n",
			vs.Version, vs.Sessions, status, humanize.Time(vs.LastRun))
		fmt.Fprintf(w, "  report: %s\n", vs.ReportPath)
		if vs.Unresolved > 0 {
			fmt.Fprintf(w, "  %s\n", warnStyle.Render(fmt.Sprintf("%d benchmark(s) still unresolved", vs.Unresolved)))
		}
	}
}
