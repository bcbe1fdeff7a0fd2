package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sourceTemplate = `package example

import "github.com/reparse-dev/reparse/reparse"

func Parse(line string) (int, []int, error) {
	var result int
	var operands []int
	reparse.Scan("{result}: ({operands*} ?)+", line)
	return result, operands, nil
}
`

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "example.go")
	require.NoError(t, os.WriteFile(path, []byte(sourceTemplate), 0o644))
	return path
}

func TestRewriteFileSplicesGeneratedCode(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir)

	changed, err := RewriteFile(path, nil)
	require.NoError(t, err)
	require.True(t, changed)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	src := string(out)

	require.NotContains(t, src, "reparse.Scan(")
	require.NotContains(t, src, `"github.com/reparse-dev/reparse/reparse"`)
	require.Contains(t, src, "strconv")
	require.Contains(t, src, "__reparse_input")
}

func TestRewriteFileIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir)

	_, err := RewriteFile(path, nil)
	require.NoError(t, err)

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	changed, err := RewriteFile(path, nil)
	require.NoError(t, err)
	require.False(t, changed, "a second pass over an already-generated file has no marker calls left to rewrite")

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestRewriteFileSkipsFilesWithoutMarkerImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.go")
	require.NoError(t, os.WriteFile(path, []byte("package example\n"), 0o644))

	changed, err := RewriteFile(path, nil)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestRewriteFilePropagatesCompileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.go")
	src := strings.ReplaceAll(sourceTemplate, "{result}", "{reuslt}")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	_, err := RewriteFile(path, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "did you mean")
}
