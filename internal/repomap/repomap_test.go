package repomap

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestBuilder_BuildRejectsInvalidConfig(t *testing.T) {
	_, err := NewBuilder(t.TempDir()).MaxFiles(-1).WithGoAnalyzer().Build()
	require.Error(t, err)
}

func TestBuilder_BuildRequiresAtLeastOneAnalyzer(t *testing.T) {
	_, err := NewBuilder(t.TempDir()).Build()
	require.Error(t, err)
}

func TestRepoMap_ScanThenSearchFunctions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "job.go", "package worker\n\nfunc Run() {}\n")

	rm, err := NewBuilder(dir).WithGoAnalyzer().Build()
	require.NoError(t, err)

	result, err := rm.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesScanned)

	toolResult := rm.ExecuteTool("search_functions", json.RawMessage(`{"pattern":"Run"}`))
	require.True(t, toolResult.Success)
}

func TestRepoMap_AnalyzeNowIndexesFileNotYetScanned(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "job.go", "package worker\n\nfunc Run() {}\n")

	rm, err := NewBuilder(dir).WithGoAnalyzer().Build()
	require.NoError(t, err)

	fa, err := rm.AnalyzeNow(filepath.Join(dir, "job.go"))
	require.NoError(t, err)
	require.Len(t, fa.Functions, 1)

	m := rm.Metadata()
	require.Equal(t, 1, m.TotalFiles)
}

func TestRepoMap_GetToolDefinitionsMatchesDispatch(t *testing.T) {
	rm, err := NewBuilder(t.TempDir()).WithGoAnalyzer().Build()
	require.NoError(t, err)
	require.Len(t, rm.GetToolDefinitions(), 6)
}
