// Package merge folds re-run benchmark results back into an existing report
// without disturbing section structure or benchmark ordering.
package merge

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/moby/sys/atomicwriter"

	"benchvar/internal/benchparse"
)

// discrepancyPreview caps how many missing names are listed when logging a
// merge discrepancy.
const discrepancyPreview = 5

// Merge produces a new report in which every benchmark entry named in
// authorized and present in rerun has its line list replaced wholesale by the
// rerun's lines. Entries outside the authorized set, header lines, footer
// lines, and section order are never modified. Authorized names missing from
// the rerun report are returned as discrepancies; their original entries are
// retained.
func Merge(original, rerun *benchparse.Report, authorized []string) (*benchparse.Report, []string) {
	authorizedSet := make(map[string]bool, len(authorized))
	for _, name := range authorized {
		authorizedSet[benchparse.StripParallelism(name)] = true
	}

	replacements := make(map[string][]string)
	for _, sec := range rerun.Sections {
		for _, e := range sec.Entries {
			if authorizedSet[e.Name] {
				replacements[e.Name] = append(replacements[e.Name], e.Lines...)
			}
		}
	}

	merged := &benchparse.Report{}
	replaced := make(map[string]bool)
	for _, sec := range original.Sections {
		out := &benchparse.Section{
			HeaderLines: append([]string(nil), sec.HeaderLines...),
			FooterLines: append([]string(nil), sec.FooterLines...),
		}
		for _, e := range sec.Entries {
			lines := e.Lines
			if authorizedSet[e.Name] {
				if repl, ok := replacements[e.Name]; ok {
					lines = repl
					replaced[e.Name] = true
				}
			}
			out.Entries = append(out.Entries, &benchparse.Entry{
				Name:  e.Name,
				Lines: append([]string(nil), lines...),
			})
		}
		merged.Sections = append(merged.Sections, out)
	}

	var missing []string
	for _, name := range authorized {
		stripped := benchparse.StripParallelism(name)
		if _, ok := replacements[stripped]; !ok {
			missing = append(missing, stripped)
		}
	}

	return merged, missing
}

// LogDiscrepancies reports authorized-but-missing benchmarks as a warning
// with a capped name preview. A nil or empty list is a no-op.
func LogDiscrepancies(logger *slog.Logger, missing []string) {
	if len(missing) == 0 {
		return
	}
	preview := missing
	if len(preview) > discrepancyPreview {
		preview = preview[:discrepancyPreview]
	}
	logger.Warn("re-run output missing authorized benchmarks; originals retained",
		"count", len(missing), "names", preview)
}

// WriteReport serializes the report to a temporary file in the destination
// directory and renames it into place. A serialization error leaves the
// destination untouched and the temporary artifact cleaned up.
func WriteReport(path string, r *benchparse.Report) error {
	w, err := atomicwriter.New(path, 0o644)
	if err != nil {
		return fmt.Errorf("preparing atomic write for %s: %w", path, err)
	}

	if _, err := r.WriteTo(w); err != nil {
		w.Close() //nolint:errcheck // discard path, the temp file is removed either way
		return fmt.Errorf("serializing report to %s: %w", path, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("committing report to %s: %w", path, err)
	}
	return nil
}

// BackupAndReplace copies the destination to <path>.backup and then atomically
// replaces it with the merged report. The backup always reflects the
// pre-merge content.
func BackupAndReplace(path string, merged *benchparse.Report) error {
	if err := copyFile(path, path+".backup"); err != nil {
		return fmt.Errorf("backing up %s: %w", path, err)
	}
	return WriteReport(path, merged)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck // copy already failed
		return err
	}
	return out.Close()
}
