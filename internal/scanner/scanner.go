// Package scanner walks a directory root and produces the bounded stream of
// candidate files an analyzer registry will process (spec.md section 4.3).
// The walk itself follows the teacher's internal/indexing.FileScanner shape
// (filepath.Walk with symlink-cycle tracking, size/exclude filtering before
// any read), but pattern matching is delegated to bmatcuk/doublestar rather
// than the teacher's hand-rolled glob matcher, and per-file analysis runs
// through a golang.org/x/sync/errgroup bounded worker pool instead of the
// teacher's raw channel/goroutine pipeline.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/repomap/internal/analyzer"
	"github.com/standardbeagle/repomap/internal/config"
	"github.com/standardbeagle/repomap/internal/errs"
	"github.com/standardbeagle/repomap/internal/lcidebug"
	"github.com/standardbeagle/repomap/internal/types"
)

// Scanner discovers files under a root and hands each one to the registry
// for analysis.
type Scanner struct {
	cfg       *config.Config
	registry  *analyzer.Registry
	gitignore *config.GitignoreParser
}

func New(cfg *config.Config, registry *analyzer.Registry) *Scanner {
	s := &Scanner{cfg: cfg, registry: registry}
	if cfg.RespectGitignore {
		gp := config.NewGitignoreParser()
		if err := gp.LoadGitignore(cfg.Root); err != nil {
			lcidebug.Log("gitignore load failed for %s: %v", cfg.Root, err)
		} else {
			s.gitignore = gp
		}
	}
	return s
}

// Result mirrors spec.md section 4.3's ScanResult contract.
type Result struct {
	FilesScanned   int
	FunctionsFound int
	StructsFound   int
	DurationMs     int64
	Errors         []error
	Truncated      bool
	Cancelled      bool
}

// fileRecord pairs a discovered path with the analysis produced for it, kept
// in discovery-completion order for the caller to ingest (spec.md section 5,
// "file records are ingested in the order the scanner emits completions").
type fileRecord struct {
	analysis types.FileAnalysis
}

// Scan walks cfg.Root, analyzes every eligible file with a worker pool sized
// to available CPU, and streams completed records to onRecord as they land.
// onRecord is called sequentially from a single goroutine, so callers do not
// need their own synchronization to ingest into an index.
func (s *Scanner) Scan(ctx context.Context, onRecord func(types.FileAnalysis)) (*Result, error) {
	start := time.Now()
	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return nil, errs.NewIOError("stat", s.cfg.Root, err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, errs.NewIOError("stat", root, err)
	}

	paths, truncated, walkErrs := s.discover(ctx, root)

	result := &Result{Truncated: truncated, Errors: walkErrs}

	// One slot per path: the drain goroutine starts only after every task is
	// submitted, so workers must never block on send while g.Go waits for a
	// free worker slot.
	recordCh := make(chan fileRecord, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	var scanned int64
	for _, p := range paths {
		p := p
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			fa, err := s.analyzeOne(p)
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, err)
				mu.Unlock()
				return nil
			}
			atomic.AddInt64(&scanned, 1)
			select {
			case recordCh <- fileRecord{analysis: fa}:
			case <-gctx.Done():
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for rec := range recordCh {
			onRecord(rec.analysis)
			result.FunctionsFound += len(rec.analysis.Functions)
			result.StructsFound += len(rec.analysis.Structs)
		}
	}()

	waitErr := g.Wait()
	close(recordCh)
	<-done

	result.FilesScanned = int(scanned)
	result.DurationMs = time.Since(start).Milliseconds()
	if ctx.Err() != nil {
		result.Cancelled = true
	}
	if waitErr != nil && ctx.Err() == nil {
		return result, waitErr
	}
	return result, nil
}

func (s *Scanner) analyzeOne(path string) (types.FileAnalysis, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return types.FileAnalysis{}, errs.NewIOError("read", path, err)
	}
	a, ok := s.registry.ByPath(path)
	if !ok {
		lang, ok := s.registry.Detect(path, text)
		if !ok {
			return types.FileAnalysis{}, errs.NewIOError("detect", path, nil)
		}
		a, _ = s.registry.ByLanguage(lang)
	}
	return a.Analyze(path, text), nil
}

// discover walks root and returns eligible file paths in filesystem order,
// honoring max_depth, follow_symlinks, include/exclude patterns, gitignore,
// max_file_size, and the max_files ceiling (spec.md section 4.3).
func (s *Scanner) discover(ctx context.Context, root string) ([]string, bool, []error) {
	var paths []string
	var walkErrs []error
	visited := make(map[string]bool)
	truncated := false

	walkFn := func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			walkErrs = append(walkErrs, errs.NewIOError("walk", path, err))
			return nil
		}

		if info.IsDir() {
			if path != root {
				if realPath, err := filepath.EvalSymlinks(path); err == nil {
					if visited[realPath] {
						return filepath.SkipDir
					}
					visited[realPath] = true
				}
				if s.cfg.MaxDepth > 0 && depthOf(root, path) > s.cfg.MaxDepth {
					return filepath.SkipDir
				}
				rel := relSlash(root, path)
				if s.excluded(rel, true) {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 && !s.cfg.FollowSymlinks {
			return nil
		}
		if info.Size() > s.cfg.MaxFileSize {
			return nil
		}
		rel := relSlash(root, path)
		if s.excluded(rel, false) {
			return nil
		}
		if !s.included(rel) {
			return nil
		}
		if len(paths) >= s.cfg.MaxFiles {
			truncated = true
			return filepath.SkipAll
		}
		paths = append(paths, path)
		return nil
	}

	if err := filepath.Walk(root, walkFn); err != nil && err != filepath.SkipAll {
		walkErrs = append(walkErrs, errs.NewIOError("walk", root, err))
	}

	return paths, truncated, walkErrs
}

func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	if rel == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func (s *Scanner) excluded(rel string, isDir bool) bool {
	if s.gitignore != nil && s.gitignore.ShouldIgnore(rel, isDir) {
		return true
	}
	for _, pattern := range s.cfg.ExcludePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) included(rel string) bool {
	if len(s.cfg.IncludePatterns) == 0 {
		return true
	}
	for _, pattern := range s.cfg.IncludePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
