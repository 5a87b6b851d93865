package collector

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// failedSuffix is the naming convention for the unresolved-benchmark side
// file written next to a report.
const failedSuffix = "_failed_benchmarks.txt"

// DeriveOriginalReport maps a failed-benchmarks file path back to the
// canonical report it was written for:
// 2026-01-26_21-55-10_failed_benchmarks.txt -> 2026-01-26_21-55-10.txt.
// A name without the required suffix is an input-validation error.
func DeriveOriginalReport(failedFile string) (string, error) {
	base := filepath.Base(failedFile)
	if !strings.HasSuffix(base, failedSuffix) {
		return "", fmt.Errorf("invalid failed benchmarks filename %q: want <timestamp>%s", base, failedSuffix)
	}
	stem := strings.TrimSuffix(base, failedSuffix)
	if stem == "" {
		return "", fmt.Errorf("invalid failed benchmarks filename %q: empty timestamp", base)
	}
	return filepath.Join(filepath.Dir(failedFile), stem+".txt"), nil
}

// FailedFileFor returns the unresolved-list path for a canonical report.
func FailedFileFor(reportPath string) string {
	stem := strings.TrimSuffix(reportPath, filepath.Ext(reportPath))
	return stem + failedSuffix
}

// ReadFailedNames loads the unresolved benchmark names from a side file, one
// name per line, verbatim apart from surrounding whitespace.
func ReadFailedNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading failed benchmarks file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// writeFailedNames persists the unresolved set next to the canonical report,
// or removes the side file when the set is empty.
func writeFailedNames(reportPath string, names []string) error {
	path := FailedFileFor(reportPath)
	if len(names) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return os.WriteFile(path, []byte(strings.Join(names, "\n")+"\n"), 0o644)
}
