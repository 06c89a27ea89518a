package index

import (
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repomap/internal/types"
)

func fileWithFunction(path, fnName string) types.FileAnalysis {
	return types.FileAnalysis{
		Path:        path,
		Language:    "go",
		ContentHash: xxhash.Sum64([]byte(path)),
		Functions: []types.FunctionSignature{
			{Name: fnName, IsPublic: true, StartLine: 1, EndLine: 3},
		},
	}
}

func TestRepoMap_IngestThenRemoveIsNoOp(t *testing.T) {
	r := New(time.Minute, 0)
	before := r.Metadata()

	r.Ingest(fileWithFunction("a.go", "Foo"))
	require.True(t, r.Remove("a.go"))

	after := r.Metadata()
	require.Equal(t, before.TotalFiles, after.TotalFiles)
	require.Equal(t, before.TotalFunctions, after.TotalFunctions)

	matches, err := r.FindFunctions("Foo", 0)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestRepoMap_IngestIsIdempotentOnUnchangedContent(t *testing.T) {
	r := New(time.Minute, 0)
	fa := fileWithFunction("a.go", "Foo")

	r.Ingest(fa)
	first := r.Metadata()
	r.Ingest(fa)
	second := r.Metadata()

	require.Equal(t, first.TotalFiles, second.TotalFiles)
	require.Equal(t, first.TotalFunctions, second.TotalFunctions)

	matches, err := r.FindFunctions("Foo", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestRepoMap_FindFunctionsSecondaryIndexAgreesWithRecords(t *testing.T) {
	r := New(time.Minute, 0)
	r.Ingest(fileWithFunction("a.go", "Foo"))
	r.Ingest(fileWithFunction("b.go", "Bar"))

	matches, err := r.FindFunctions("Foo", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "a.go", matches[0].File)

	fa, ok := r.AnalysisByPath("a.go")
	require.True(t, ok)
	require.Equal(t, "Foo", fa.Functions[0].Name)
}

func TestRepoMap_CacheHitAfterFirstLookup(t *testing.T) {
	r := New(time.Minute, 0)
	r.Ingest(fileWithFunction("a.go", "Foo"))

	_, err := r.FindFunctions("Foo", 0)
	require.NoError(t, err)
	missesAfterFirst := r.Metadata().CacheMisses

	_, err = r.FindFunctions("Foo", 0)
	require.NoError(t, err)
	m := r.Metadata()
	require.Equal(t, missesAfterFirst, m.CacheMisses)
	require.GreaterOrEqual(t, m.CacheHits, int64(1))
}

func TestRepoMap_IngestInvalidatesCache(t *testing.T) {
	r := New(time.Minute, 0)
	r.Ingest(fileWithFunction("a.go", "Foo"))

	_, err := r.FindFunctions("Foo", 0)
	require.NoError(t, err)

	r.Ingest(fileWithFunction("b.go", "Bar"))

	_, err = r.FindFunctions("Foo", 0)
	require.NoError(t, err)
	m := r.Metadata()
	require.GreaterOrEqual(t, m.CacheMisses, int64(2))
}

func TestRepoMap_LowerCasePatternFallsBackToCaseInsensitive(t *testing.T) {
	r := New(time.Minute, 0)
	r.Ingest(fileWithFunction("a.go", "Foo"))
	r.Ingest(fileWithFunction("b.go", "bar"))

	matches, err := r.FindFunctions("foo", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1, "all-lower pattern should match any case")

	matches, err = r.FindFunctions("Foo", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	matches, err = r.FindFunctions("Bar", 0)
	require.NoError(t, err)
	require.Empty(t, matches, "mixed/upper-case pattern stays case-sensitive")
}

func TestRepoMap_FuzzySearchScoreBounds(t *testing.T) {
	r := New(time.Minute, 0)
	r.Ingest(fileWithFunction("a.go", "Foo"))
	r.Ingest(fileWithFunction("b.go", "Foobar"))

	matches := r.FuzzySearch("Foo", 0)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		require.GreaterOrEqual(t, m.Score, float32(0))
		require.LessOrEqual(t, m.Score, float32(1))
	}
	require.Equal(t, "Foo", matches[0].Name)
	require.Equal(t, float32(1), matches[0].Score)
}

func TestRepoMap_CallersOfOrderedByFileThenLine(t *testing.T) {
	r := New(time.Minute, 0)
	r.Ingest(types.FileAnalysis{
		Path: "b.go",
		Calls: []types.FunctionCall{
			{Callee: "helper", Line: 10},
		},
	})
	r.Ingest(types.FileAnalysis{
		Path: "a.go",
		Calls: []types.FunctionCall{
			{Callee: "helper", Line: 20},
			{Callee: "helper", Line: 5},
		},
	})

	sites := r.CallersOf("helper", 0)
	require.Len(t, sites, 3)
	require.Equal(t, "a.go", sites[0].CallerFile)
	require.Equal(t, 5, sites[0].Line)
	require.Equal(t, "a.go", sites[1].CallerFile)
	require.Equal(t, 20, sites[1].Line)
	require.Equal(t, "b.go", sites[2].CallerFile)
}

func TestRepoMap_MaxFilesEvictsOldestFirst(t *testing.T) {
	r := New(time.Minute, 2)
	r.Ingest(fileWithFunction("a.go", "A"))
	r.Ingest(fileWithFunction("b.go", "B"))
	r.Ingest(fileWithFunction("c.go", "C"))

	_, ok := r.AnalysisByPath("a.go")
	require.False(t, ok, "oldest record should have been evicted")

	_, ok = r.AnalysisByPath("b.go")
	require.True(t, ok)
	_, ok = r.AnalysisByPath("c.go")
	require.True(t, ok)
}
