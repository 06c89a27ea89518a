package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repomap/internal/index"
	"github.com/standardbeagle/repomap/internal/types"
)

func newTestIndex() *index.RepoMap {
	r := index.New(time.Minute, 0)
	r.Ingest(types.FileAnalysis{
		Path:     "worker.go",
		Language: "go",
		Functions: []types.FunctionSignature{
			{Name: "Run", IsPublic: true, StartLine: 1, EndLine: 5},
		},
		Imports: []types.ImportStatement{{Module: "fmt"}},
		Calls:   []types.FunctionCall{{Callee: "Run", Line: 12}},
	})
	return r
}

func TestDispatcher_SearchFunctions(t *testing.T) {
	d := New(newTestIndex(), nil)
	result := d.Execute("search_functions", json.RawMessage(`{"pattern":"Run"}`))
	require.True(t, result.Success)
	list, ok := result.Data.([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	require.Equal(t, "Run", list[0]["name"])
}

func TestDispatcher_SearchFunctionsMissingPatternIsToolError(t *testing.T) {
	d := New(newTestIndex(), nil)
	result := d.Execute("search_functions", json.RawMessage(`{}`))
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}

func TestDispatcher_UnknownToolIsError(t *testing.T) {
	d := New(newTestIndex(), nil)
	result := d.Execute("delete_everything", json.RawMessage(`{}`))
	require.False(t, result.Success)
}

func TestDispatcher_AnalyzeFileFallsBackToReindexer(t *testing.T) {
	reindexer := &fakeReindexer{
		fa: types.FileAnalysis{Path: "new.go", Language: "go"},
	}
	d := New(newTestIndex(), reindexer)

	result := d.Execute("analyze_file", json.RawMessage(`{"path":"new.go"}`))
	require.True(t, result.Success)
	require.True(t, reindexer.called)
}

func TestDispatcher_AnalyzeFileNotFoundWithoutReindexer(t *testing.T) {
	d := New(newTestIndex(), nil)
	result := d.Execute("analyze_file", json.RawMessage(`{"path":"missing.go"}`))
	require.False(t, result.Success)
}

func TestDispatcher_GetDependencies(t *testing.T) {
	d := New(newTestIndex(), nil)
	result := d.Execute("get_dependencies", json.RawMessage(`{"path":"worker.go"}`))
	require.True(t, result.Success)
}

func TestDispatcher_FindCallers(t *testing.T) {
	d := New(newTestIndex(), nil)
	result := d.Execute("find_callers", json.RawMessage(`{"function_name":"Run"}`))
	require.True(t, result.Success)
	sites, ok := result.Data.([]types.CallSite)
	require.True(t, ok)
	require.Len(t, sites, 1)
}

func TestDispatcher_GetRepositoryTree(t *testing.T) {
	d := New(newTestIndex(), nil)
	result := d.Execute("get_repository_tree", json.RawMessage(`{"include_counts":true}`))
	require.True(t, result.Success)
}

func TestGetToolDefinitions_FixedSixTools(t *testing.T) {
	defs := GetToolDefinitions()
	require.Len(t, defs, 6)
	names := make(map[string]bool)
	for _, d := range defs {
		names[d.Name] = true
	}
	for _, want := range []string{
		"search_functions", "search_structs", "analyze_file",
		"get_dependencies", "find_callers", "get_repository_tree",
	} {
		require.True(t, names[want], "missing tool %s", want)
	}
}

type fakeReindexer struct {
	fa     types.FileAnalysis
	called bool
}

func (f *fakeReindexer) AnalyzeNow(path string) (types.FileAnalysis, error) {
	f.called = true
	return f.fa, nil
}
