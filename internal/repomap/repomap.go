// Package repomap composes the scanner, analyzer registry, index, and
// dispatcher into the single thread-safe handle spec.md section 4.6
// describes, constructed through a fluent Builder in the teacher's own
// style (internal/config's option-setter pattern, generalized here to a
// builder object rather than a config struct assembled in place).
package repomap

import (
	"context"
	"os"
	"time"

	"github.com/standardbeagle/repomap/internal/analyzer"
	"github.com/standardbeagle/repomap/internal/config"
	"github.com/standardbeagle/repomap/internal/dispatch"
	"github.com/standardbeagle/repomap/internal/errs"
	"github.com/standardbeagle/repomap/internal/index"
	"github.com/standardbeagle/repomap/internal/scanner"
	"github.com/standardbeagle/repomap/internal/tsparser"
	"github.com/standardbeagle/repomap/internal/types"
)

// RepoMap is the facade a caller constructs via Builder and calls Scan /
// ExecuteTool on. It is safe for concurrent use: most ExecuteTool calls run
// in parallel under the index's read lock; search_functions and
// search_structs take its write lock because they update the query cache,
// and analyze_file takes it when it ingests a file not yet indexed. Scan
// takes the index's write lock per ingested record.
type RepoMap struct {
	cfg        *config.Config
	registry   *analyzer.Registry
	index      *index.RepoMap
	dispatcher *dispatch.Dispatcher
	scanner    *scanner.Scanner
}

// Scan walks cfg.Root and ingests every analyzed file into the index. It
// returns once the walk and all in-flight analyses complete or ctx is
// cancelled (spec.md section 5, "Cancellation").
func (r *RepoMap) Scan(ctx context.Context) (*scanner.Result, error) {
	return r.scanner.Scan(ctx, r.index.Ingest)
}

// ExecuteTool routes one dispatcher call by name (spec.md section 4.5).
func (r *RepoMap) ExecuteTool(tool string, params []byte) dispatch.ToolResult {
	return r.dispatcher.Execute(tool, params)
}

// GetToolDefinitions returns the fixed six-tool schema list.
func (r *RepoMap) GetToolDefinitions() []dispatch.ToolDefinition {
	return dispatch.GetToolDefinitions()
}

// AnalyzeNow re-runs analysis on path without requiring a prior scan to have
// indexed it, satisfying dispatch.Reindexer for analyze_file's on-demand
// path.
func (r *RepoMap) AnalyzeNow(path string) (types.FileAnalysis, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return types.FileAnalysis{}, errs.NewIOError("read", path, err)
	}
	a, ok := r.registry.ByPath(path)
	if !ok {
		lang, ok := r.registry.Detect(path, text)
		if !ok {
			return types.FileAnalysis{}, errs.NewNotFoundError("analyze_file", "no analyzer for path")
		}
		a, _ = r.registry.ByLanguage(lang)
	}
	fa := a.Analyze(path, text)
	r.index.Ingest(fa)
	return fa, nil
}

// Metadata exposes the index's current bookkeeping (spec.md section 4.4).
func (r *RepoMap) Metadata() index.Metadata { return r.index.Metadata() }

// Builder configures a RepoMap before construction. Every setter matches a
// row in spec.md section 6's builder table.
type Builder struct {
	cfg        *config.Config
	registered map[string]bool
	loadErr    error
}

// NewBuilder starts from spec.md section 6's defaults, rooted at root.
func NewBuilder(root string) *Builder {
	return &Builder{
		cfg:        config.Default(root),
		registered: make(map[string]bool),
	}
}

func (b *Builder) WithGoAnalyzer() *Builder {
	b.registered["go"] = true
	return b
}

func (b *Builder) WithPythonAnalyzer() *Builder {
	b.registered["python"] = true
	return b
}

func (b *Builder) WithRustAnalyzer() *Builder {
	b.registered["rust"] = true
	return b
}

func (b *Builder) WithJavaScriptAnalyzer() *Builder {
	b.registered["javascript"] = true
	return b
}

func (b *Builder) MaxFiles(n int) *Builder {
	b.cfg.MaxFiles = n
	return b
}

func (b *Builder) MaxFileSize(bytes int64) *Builder {
	b.cfg.MaxFileSize = bytes
	return b
}

func (b *Builder) MaxDepth(n int) *Builder {
	b.cfg.MaxDepth = n
	return b
}

func (b *Builder) FollowSymlinks(follow bool) *Builder {
	b.cfg.FollowSymlinks = follow
	return b
}

func (b *Builder) IncludePatterns(globs []string) *Builder {
	b.cfg.IncludePatterns = globs
	return b
}

func (b *Builder) ExcludePatterns(globs []string) *Builder {
	b.cfg.ExcludePatterns = globs
	return b
}

func (b *Builder) CacheTTL(d time.Duration) *Builder {
	b.cfg.CacheTTL = d
	return b
}

func (b *Builder) RespectGitignore(respect bool) *Builder {
	b.cfg.RespectGitignore = respect
	return b
}

// FromKDL merges .repomap.kdl found under root into the builder's config, if
// present.
func (b *Builder) FromKDL() *Builder {
	if err := config.LoadKDL(b.cfg.Root, b.cfg); err != nil {
		b.loadErr = err
	}
	return b
}

// Build validates the configuration and wires the scanner, registry, index,
// and dispatcher into one RepoMap. An invalid configuration (e.g. zero
// max_files) is a configuration error, fatal to construction (spec.md
// section 7).
func (b *Builder) Build() (*RepoMap, error) {
	if b.loadErr != nil {
		return nil, errs.NewConfigError("repomap.kdl", b.cfg.Root, b.loadErr)
	}

	for lang := range b.registered {
		b.cfg.Languages = append(b.cfg.Languages, lang)
	}

	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	registry := analyzer.NewRegistry()
	pool := tsparser.NewPool()

	if b.registered["go"] {
		if err := registry.Register(analyzer.NewGoAnalyzer()); err != nil {
			return nil, err
		}
	}
	if b.registered["python"] {
		if err := registry.Register(analyzer.NewPythonAnalyzer(pool)); err != nil {
			return nil, err
		}
	}
	if b.registered["rust"] {
		if err := registry.Register(analyzer.NewRustAnalyzer(pool)); err != nil {
			return nil, err
		}
	}
	if b.registered["javascript"] {
		if err := registry.Register(analyzer.NewJSAnalyzer(pool)); err != nil {
			return nil, err
		}
	}

	idx := index.New(b.cfg.CacheTTL, b.cfg.MaxFiles)
	scan := scanner.New(b.cfg, registry)

	rm := &RepoMap{
		cfg:      b.cfg,
		registry: registry,
		index:    idx,
		scanner:  scan,
	}
	rm.dispatcher = dispatch.New(idx, rm)

	return rm, nil
}
