package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repomap/internal/analyzer"
	"github.com/standardbeagle/repomap/internal/config"
	"github.com/standardbeagle/repomap/internal/index"
	"github.com/standardbeagle/repomap/internal/types"
)

func newTestRegistry(t *testing.T) *analyzer.Registry {
	t.Helper()
	reg := analyzer.NewRegistry()
	require.NoError(t, reg.Register(analyzer.NewGoAnalyzer()))
	return reg
}

func writeGoFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestScanner_ScanFindsEligibleFiles(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "a.go", "package a\n\nfunc Foo() {}\n")
	writeGoFile(t, dir, "b.go", "package a\n\nfunc Bar() {}\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "node_modules"), 0o755))
	writeGoFile(t, filepath.Join(dir, "node_modules"), "vendored.go", "package vendored\n")

	cfg := config.Default(dir)
	cfg.RespectGitignore = false
	s := New(cfg, newTestRegistry(t))

	var mu sync.Mutex
	var seen []string
	result, err := s.Scan(context.Background(), func(fa types.FileAnalysis) {
		mu.Lock()
		seen = append(seen, fa.Path)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.FilesScanned)
	require.Len(t, seen, 2)
	require.False(t, result.Truncated)
}

func TestScanner_MaxFilesTruncates(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeGoFile(t, dir, fmt.Sprintf("f%d.go", i), fmt.Sprintf("package a\n\nfunc F%d() {}\n", i))
	}

	cfg := config.Default(dir)
	cfg.RespectGitignore = false
	cfg.MaxFiles = 2
	s := New(cfg, newTestRegistry(t))

	result, err := s.Scan(context.Background(), func(types.FileAnalysis) {})
	require.NoError(t, err)
	require.True(t, result.Truncated)
	require.LessOrEqual(t, result.FilesScanned, 2)
}

// TestScanner_ConcurrentScanAndQuery exercises spec.md's concurrency scenario:
// a scan ingesting many files runs alongside repeated search_functions calls
// on another goroutine, and no query call ever fails or observes a torn
// index.
func TestScanner_ConcurrentScanAndQuery(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 200; i++ {
		writeGoFile(t, dir, fmt.Sprintf("f%d.go", i), fmt.Sprintf("package a\n\nfunc Main%d() {}\n", i))
	}

	cfg := config.Default(dir)
	cfg.RespectGitignore = false
	cfg.MaxFiles = 1000
	s := New(cfg, newTestRegistry(t))
	idx := index.New(time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queryDone := make(chan struct{})
	go func() {
		defer close(queryDone)
		for i := 0; i < 100; i++ {
			_, err := idx.FindFunctions("Main", 0)
			require.NoError(t, err)
		}
	}()

	result, err := s.Scan(ctx, func(fa types.FileAnalysis) {
		idx.Ingest(fa)
	})
	require.NoError(t, err)
	require.Equal(t, 200, result.FilesScanned)

	<-queryDone

	final, err := idx.FindFunctions("Main", 0)
	require.NoError(t, err)
	require.Len(t, final, 200)
}
