package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runCommand allows tests to stub subprocess invocation.
var runCommand = func(bin string, args ...string) (string, error) {
	out, err := exec.Command(bin, args...).CombinedOutput()
	return string(out), err
}

// Toolchain locates per-version go binaries.
type Toolchain struct {
	// Dir optionally points at a directory containing go<version>/bin/go
	// trees. When empty, the golang.org/dl convention ($HOME/sdk) and PATH
	// are consulted.
	Dir string
}

// Find resolves the go binary for a version such as "1.24". It checks the
// configured toolchain directory, then $HOME/sdk/go<version>/bin/go, then
// falls back to the go on PATH if its reported version matches.
func (t Toolchain) Find(version string) (string, error) {
	var candidates []string
	if t.Dir != "" {
		candidates = append(candidates, filepath.Join(t.Dir, "go"+version, "bin", "go"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "sdk", "go"+version, "bin", "go"))
	}

	for _, bin := range candidates {
		if info, err := os.Stat(bin); err == nil && !info.IsDir() {
			if versionMatches(bin, version) {
				return bin, nil
			}
		}
	}

	if bin, err := exec.LookPath("go"); err == nil && versionMatches(bin, version) {
		return bin, nil
	}

	return "", fmt.Errorf("go %s toolchain not found (looked in %s, $HOME/sdk, PATH)", version, t.Dir)
}

// versionMatches runs `go version` and checks the reported release prefix.
func versionMatches(bin, version string) bool {
	out, err := runCommand(bin, "version")
	if err != nil {
		return false
	}
	for _, field := range strings.Fields(out) {
		if field == "go"+version || strings.HasPrefix(field, "go"+version+".") {
			return true
		}
	}
	return false
}
