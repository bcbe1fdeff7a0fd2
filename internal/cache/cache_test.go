package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reparse-dev/reparse/internal/cache"
)

func TestStoreThenLookupRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := cache.Open(dir)
	require.NoError(t, err)

	key, err := cache.Key(cache.CanonicalInput{
		Pattern:   "{x}",
		InputExpr: "line",
		Decls:     []cache.CanonicalDecl{{Name: "x", GoType: "string"}},
	})
	require.NoError(t, err)

	require.NoError(t, c.Store(key, "{x}", "line", "var x string\n"))

	entry, ok := c.Lookup(key)
	require.True(t, ok)
	require.Equal(t, "var x string\n", entry.Source)
}

func TestLookupMissingKeyReturnsFalse(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := cache.Open(dir)
	require.NoError(t, err)

	_, ok := c.Lookup("does-not-exist")
	require.False(t, ok)
}

func TestKeyIsStableAcrossDeclOrder(t *testing.T) {
	in1 := cache.CanonicalInput{
		Pattern:   "{a}{b}",
		InputExpr: "line",
		Decls: []cache.CanonicalDecl{
			{Name: "a", GoType: "string"},
			{Name: "b", GoType: "int"},
		},
	}
	in2 := in1
	in2.Decls = []cache.CanonicalDecl{
		{Name: "b", GoType: "int"},
		{Name: "a", GoType: "string"},
	}

	k1, err := cache.Key(in1)
	require.NoError(t, err)
	k2, err := cache.Key(in2)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}

func TestKeyChangesWithGoType(t *testing.T) {
	base := cache.CanonicalInput{
		Pattern:   "{a}",
		InputExpr: "line",
		Decls:     []cache.CanonicalDecl{{Name: "a", GoType: "string"}},
	}
	variant := base
	variant.Decls = []cache.CanonicalDecl{{Name: "a", GoType: "int"}}

	k1, err := cache.Key(base)
	require.NoError(t, err)
	k2, err := cache.Key(variant)
	require.NoError(t, err)
	require.NotEqual(t, k1, k2)
}

func TestUpToDateDetectsChangedSource(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := cache.Open(dir)
	require.NoError(t, err)

	key, err := cache.Key(cache.CanonicalInput{Pattern: "{x}", InputExpr: "line"})
	require.NoError(t, err)
	require.NoError(t, c.Store(key, "{x}", "line", "var x string\n"))

	upToDate, err := c.UpToDate(key, "var x string\n")
	require.NoError(t, err)
	require.True(t, upToDate)

	stale, err := c.UpToDate(key, "var x string // changed\n")
	require.NoError(t, err)
	require.False(t, stale)
}

func TestOpenRejectsCorruptIndexByStartingFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte(`{not json`), 0o644))

	c, err := cache.Open(dir)
	require.NoError(t, err)
	_, ok := c.Lookup("anything")
	require.False(t, ok)
}

func TestCleanRemovesEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := cache.Open(dir)
	require.NoError(t, err)

	key, err := cache.Key(cache.CanonicalInput{Pattern: "{x}", InputExpr: "line"})
	require.NoError(t, err)
	require.NoError(t, c.Store(key, "{x}", "line", "var x string\n"))

	require.NoError(t, c.Clean())
	_, ok := c.Lookup(key)
	require.False(t, ok)
}

