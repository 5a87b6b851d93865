package benchparse

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Entry is one benchmark's ordered list of raw result lines within a section.
type Entry struct {
	Name  string
	Lines []string
}

// Section is one package's contiguous report block: header lines
// (goos/goarch/pkg/cpu), benchmark entries in first-seen order, and footer
// lines (PASS/FAIL/ok summary).
type Section struct {
	HeaderLines []string
	Entries     []*Entry
	FooterLines []string
}

// Report is an ordered sequence of package sections.
type Report struct {
	Sections []*Section
}

var headerPrefixes = []string{"goos:", "goarch:", "pkg:", "cpu:"}

var footerPrefixes = []string{"PASS", "FAIL", "--- FAIL", "ok ", "ok\t", "exit status"}

func isHeaderLine(line string) bool {
	for _, p := range headerPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func isFooterLine(line string) bool {
	for _, p := range footerPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// Entry returns the named benchmark entry within the section, or nil.
func (s *Section) Entry(name string) *Entry {
	for _, e := range s.Entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// BenchmarkNames returns every benchmark name in the report in order of first
// appearance across sections.
func (r *Report) BenchmarkNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, sec := range r.Sections {
		for _, e := range sec.Entries {
			if !seen[e.Name] {
				seen[e.Name] = true
				names = append(names, e.Name)
			}
		}
	}
	return names
}

// ParseReport parses line-oriented report text into ordered sections. A goos:
// line always closes the previous section and opens the next one; result
// lines extend the current benchmark block; footer markers close the block
// out. Unrecognized lines are skipped. Empty input yields zero sections.
func ParseReport(r io.Reader) (*Report, error) {
	report := &Report{}
	var cur *Section

	flush := func() {
		if cur != nil {
			report.Sections = append(report.Sections, cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "goos:"):
			flush()
			cur = &Section{HeaderLines: []string{line}}

		case isHeaderLine(line):
			if cur == nil {
				cur = &Section{}
			}
			cur.HeaderLines = append(cur.HeaderLines, line)

		case strings.HasPrefix(line, "Benchmark"):
			if cur == nil {
				cur = &Section{}
			}
			name := benchName(line)
			if name == "" {
				continue
			}
			if e := cur.Entry(name); e != nil {
				e.Lines = append(e.Lines, line)
			} else {
				cur.Entries = append(cur.Entries, &Entry{Name: name, Lines: []string{line}})
			}

		case isFooterLine(line):
			if cur == nil {
				cur = &Section{}
			}
			cur.FooterLines = append(cur.FooterLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return report, nil
}

// ParseReportFile parses a report file on disk into sections.
func ParseReportFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseReport(f)
}

// WriteTo serializes the report, reproducing the header/benchmark/footer
// grouping of each section exactly.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var written int64

	writeLine := func(line string) error {
		n, err := io.WriteString(w, line+"\n")
		written += int64(n)
		return err
	}

	for _, sec := range r.Sections {
		for _, line := range sec.HeaderLines {
			if err := writeLine(line); err != nil {
				return written, err
			}
		}
		for _, e := range sec.Entries {
			for _, line := range e.Lines {
				if err := writeLine(line); err != nil {
					return written, err
				}
			}
		}
		for _, line := range sec.FooterLines {
			if err := writeLine(line); err != nil {
				return written, err
			}
		}
	}

	return written, nil
}

// String renders the report as text.
func (r *Report) String() string {
	var b strings.Builder
	r.WriteTo(&b) //nolint:errcheck // strings.Builder never fails
	return b.String()
}
