package cachefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repomap/internal/types"
)

func sampleRecords() []types.FileAnalysis {
	return []types.FileAnalysis{
		{Path: "a.go", Language: "go", ContentHash: 111},
		{Path: "b.go", Language: "go", ContentHash: 222},
	}
}

func TestRootDigest_StableRegardlessOfOrder(t *testing.T) {
	forward := sampleRecords()
	reversed := []types.FileAnalysis{forward[1], forward[0]}

	require.Equal(t, RootDigest(forward), RootDigest(reversed))
}

func TestRootDigest_ChangesWithContent(t *testing.T) {
	records := sampleRecords()
	before := RootDigest(records)

	records[0].ContentHash = 999
	after := RootDigest(records)

	require.NotEqual(t, before, after)
}

func TestSaveLoadJSON_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json.gz")
	records := sampleRecords()

	require.NoError(t, SaveJSON(path, records))

	loaded, ok, err := LoadJSON(path, RootDigest(records))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, records, loaded)
}

func TestLoadJSON_MissingFileIsCacheMissNotError(t *testing.T) {
	loaded, ok, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json.gz"), "anything")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, loaded)
}

func TestLoadJSON_DigestMismatchIsCacheMiss(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json.gz")
	records := sampleRecords()
	require.NoError(t, SaveJSON(path, records))

	_, ok, err := LoadJSON(path, "stale-digest")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadJSON_MalformedFileIsCacheMiss(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("not a gzip stream"), 0o644))

	_, ok, err := LoadJSON(path, "anything")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	records := sampleRecords()
	require.NoError(t, store.Save(records))

	loaded, ok, err := store.Load(RootDigest(records))
	require.NoError(t, err)
	require.True(t, ok)
	require.ElementsMatch(t, records, loaded)
}

func TestSQLiteStore_DigestMismatchIsCacheMiss(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(sampleRecords()))

	_, ok, err := store.Load("stale-digest")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore_LoadOnEmptyDatabaseIsCacheMiss(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Load("anything")
	require.NoError(t, err)
	require.False(t, ok)
}
