// Package analyzer defines the language-analyzer capability set (spec.md
// section 4.1) and a thread-safe Registry (section 4.2). Analyzers never
// propagate a fatal failure: every recoverable failure is folded into the
// returned FileAnalysis.ParseErrors list. The set of analyzer
// implementations is open -- a new language is added by writing one more
// type that satisfies Analyzer and registering it, following the teacher's
// "capability set over inheritance" shape (no analyzer embeds another).
package analyzer

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/standardbeagle/repomap/internal/types"
)

// Analyzer turns one file's text into a FileAnalysis. Implementations must
// be safe to call concurrently from multiple goroutines (spec.md section
// 5, "analyzers are Send + Sync"); any per-call parser state must either be
// created fresh per call or protected by its own lock.
type Analyzer interface {
	Language() string
	Extensions() []string
	Analyze(path string, text []byte) types.FileAnalysis
}

// Registry maps a language name or file extension to the Analyzer that
// handles it. Reads take no lock beyond a shared RWMutex read section;
// Register takes the write lock (spec.md section 4.2, "Concurrency").
type Registry struct {
	mu         sync.RWMutex
	byLanguage map[string]Analyzer
	byExt      map[string]Analyzer
}

func NewRegistry() *Registry {
	return &Registry{
		byLanguage: make(map[string]Analyzer),
		byExt:      make(map[string]Analyzer),
	}
}

// ErrConflict is returned by Register when the language name or any of its
// extensions is already claimed by a different analyzer.
type ErrConflict struct {
	Language string
	Ext      string
}

func (e *ErrConflict) Error() string {
	if e.Ext != "" {
		return "analyzer registry: extension " + e.Ext + " already registered"
	}
	return "analyzer registry: language " + e.Language + " already registered"
}

// Register adds a into the registry. It fails with ErrConflict without
// mutating the registry if the language name or any extension collides
// with an already-registered analyzer.
func (r *Registry) Register(a Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byLanguage[a.Language()]; exists {
		return &ErrConflict{Language: a.Language()}
	}
	for _, ext := range a.Extensions() {
		if _, exists := r.byExt[ext]; exists {
			return &ErrConflict{Ext: ext}
		}
	}

	r.byLanguage[a.Language()] = a
	for _, ext := range a.Extensions() {
		r.byExt[ext] = a
	}
	return nil
}

func (r *Registry) ByLanguage(name string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byLanguage[name]
	return a, ok
}

func (r *Registry) ByExtension(ext string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byExt[ext]
	return a, ok
}

// ByPath resolves the analyzer for a file path by its extension.
func (r *Registry) ByPath(path string) (Analyzer, bool) {
	return r.ByExtension(strings.ToLower(filepath.Ext(path)))
}

// Detect returns the language name for a file, using extension matching
// first and falling back to a shebang sniff for extensionless scripts --
// content-based detection is explicitly optional in spec.md section 4.2.
func (r *Registry) Detect(path string, text []byte) (string, bool) {
	if a, ok := r.ByPath(path); ok {
		return a.Language(), true
	}
	if lang, ok := detectShebang(text); ok {
		if a, ok := r.ByLanguage(lang); ok {
			return a.Language(), true
		}
	}
	return "", false
}

func detectShebang(text []byte) (string, bool) {
	line := text
	if i := strings.IndexByte(string(text), '\n'); i >= 0 {
		line = text[:i]
	}
	s := string(line)
	if !strings.HasPrefix(s, "#!") {
		return "", false
	}
	switch {
	case strings.Contains(s, "python"):
		return "python", true
	case strings.Contains(s, "node"):
		return "javascript", true
	}
	return "", false
}

// Languages returns the sorted set of registered language names.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byLanguage))
	for name := range r.byLanguage {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
