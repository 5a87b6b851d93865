package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mergeOriginal = `goos: linux
goarch: amd64
pkg: example.com/demo
BenchmarkA-16    	 1000000	       100.0 ns/op
BenchmarkB-16    	 1000000	       500.0 ns/op
BenchmarkC-16    	 1000000	       900.0 ns/op
PASS
ok  	example.com/demo	2.504s
`

const mergeRerun = `goos: linux
goarch: amd64
pkg: example.com/demo
BenchmarkB-16    	 2000000	       450.0 ns/op
PASS
ok  	example.com/demo	1.202s
`

func writeMergeFixtures(t *testing.T) (original, rerun string) {
	t.Helper()
	dir := t.TempDir()
	original = filepath.Join(dir, "original.txt")
	rerun = filepath.Join(dir, "rerun.txt")
	require.NoError(t, os.WriteFile(original, []byte(mergeOriginal), 0o644))
	require.NoError(t, os.WriteFile(rerun, []byte(mergeRerun), 0o644))
	return original, rerun
}

func resetMergeFlags(t *testing.T) {
	t.Helper()
	origOutput, origInPlace := mergeOutput, mergeInPlace
	t.Cleanup(func() {
		mergeOutput = origOutput
		mergeInPlace = origInPlace
	})
	mergeOutput = ""
	mergeInPlace = false
}

func TestRunMergeToStdout(t *testing.T) {
	resetMergeFlags(t)
	original, rerun := writeMergeFixtures(t)

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	err := runMerge(cmd, []string{original, rerun})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "450.0 ns/op")
	assert.NotContains(t, got, "500.0 ns/op")
	// Untouched neighbors keep their lines and order.
	assert.Contains(t, got, "100.0 ns/op")
	assert.Contains(t, got, "900.0 ns/op")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("BenchmarkA")), bytes.Index(out.Bytes(), []byte("BenchmarkB")))
	assert.Less(t, bytes.Index(out.Bytes(), []byte("BenchmarkB")), bytes.Index(out.Bytes(), []byte("BenchmarkC")))
}

func TestRunMergeExplicitNames(t *testing.T) {
	resetMergeFlags(t)
	original, rerun := writeMergeFixtures(t)

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	// BenchmarkC is authorized but absent from the rerun report; its
	// original lines survive.
	err := runMerge(cmd, []string{original, rerun, "BenchmarkB", "BenchmarkC"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "450.0 ns/op")
	assert.Contains(t, out.String(), "900.0 ns/op")
}

func TestRunMergeInPlace(t *testing.T) {
	resetMergeFlags(t)
	original, rerun := writeMergeFixtures(t)
	mergeInPlace = true

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runMerge(cmd, []string{original, rerun})
	require.NoError(t, err)

	merged, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Contains(t, string(merged), "450.0 ns/op")

	backup, err := os.ReadFile(original + ".backup")
	require.NoError(t, err)
	assert.Equal(t, mergeOriginal, string(backup))
}

func TestRunMergeToFile(t *testing.T) {
	resetMergeFlags(t)
	original, rerun := writeMergeFixtures(t)
	mergeOutput = filepath.Join(t.TempDir(), "merged.txt")

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runMerge(cmd, []string{original, rerun})
	require.NoError(t, err)

	merged, err := os.ReadFile(mergeOutput)
	require.NoError(t, err)
	assert.Contains(t, string(merged), "450.0 ns/op")

	// Original untouched in this mode.
	before, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, mergeOriginal, string(before))
}
