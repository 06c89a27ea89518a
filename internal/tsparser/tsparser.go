// Package tsparser wraps the tree-sitter grammar runtime with panic-safe
// parsing, following the teacher's internal/parser.TreeSitterParser: a
// per-language sync.Pool of *tree_sitter.Parser instances, checked out for
// the duration of one call and returned afterward (GetSharedParser /
// ReleaseParser in internal/parser/parser.go), rather than one instance
// shared across concurrent callers. Every entry point recovers a native
// panic into an empty tree rather than aborting the process (spec.md
// section 4.1 step 1, section 5 "Panic safety" and "per-analyzer parser
// state must be protected by a per-analyzer mutex or be created per call").
package tsparser

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/repomap/internal/lcidebug"
)

// Lang identifies one of the grammars this pool knows how to construct.
type Lang string

const (
	LangRust       Lang = "rust"
	LangPython     Lang = "python"
	LangJavaScript Lang = "javascript"
	LangTypeScript Lang = "typescript"
	LangTSX        Lang = "tsx"
)

// Pool hands out a dedicated *tree_sitter.Parser per call, backed by one
// sync.Pool per language so concurrent callers never share a parser
// instance (a *tree_sitter.Parser is not safe for concurrent Parse calls).
type Pool struct {
	mu    sync.Mutex
	pools map[Lang]*sync.Pool
}

func NewPool() *Pool {
	return &Pool{pools: make(map[Lang]*sync.Pool)}
}

func languageFor(lang Lang) *tree_sitter.Language {
	switch lang {
	case LangRust:
		return tree_sitter.NewLanguage(tree_sitter_rust.Language())
	case LangPython:
		return tree_sitter.NewLanguage(tree_sitter_python.Language())
	case LangJavaScript:
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	case LangTypeScript:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	case LangTSX:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	default:
		return nil
	}
}

// poolFor returns the sync.Pool for lang, creating it (and its New func) on
// first use. The map lookup/insert is guarded by mu; the returned *sync.Pool
// itself is safe for concurrent Get/Put with no further locking.
func (p *Pool) poolFor(lang Lang) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sp, ok := p.pools[lang]; ok {
		return sp
	}
	tsLang := languageFor(lang)
	if tsLang == nil {
		return nil
	}
	sp := &sync.Pool{
		New: func() any {
			parser := tree_sitter.NewParser()
			if err := parser.SetLanguage(tsLang); err != nil {
				return nil
			}
			return parser
		},
	}
	p.pools[lang] = sp
	return sp
}

// Parse parses content with the grammar for lang, checking out an exclusive
// parser instance for the call and returning it to the pool afterward. A
// panic anywhere inside the native parser call is recovered and reported as
// ok=false rather than crashing the process (spec.md section 4.1 step 1).
// The caller owns the buffer; tree-sitter's C library may mutate it, so
// callers that need the original bytes preserved must pass a defensive copy
// (as analyzers do).
func (p *Pool) Parse(lang Lang, path string, content []byte) (tree *tree_sitter.Tree, ok bool) {
	sp := p.poolFor(lang)
	if sp == nil {
		return nil, false
	}

	v := sp.Get()
	parser, valid := v.(*tree_sitter.Parser)
	if !valid || parser == nil {
		return nil, false
	}
	defer sp.Put(parser)

	defer func() {
		if r := recover(); r != nil {
			lcidebug.LogParsePanic(path, r)
			tree = nil
			ok = false
		}
	}()

	t := parser.Parse(content, nil)
	if t == nil || t.RootNode() == nil {
		return nil, false
	}
	return t, true
}

// TextOf returns the UTF-8 slice of content covered by node, or "" if the
// byte range is out of bounds -- every text fetch by byte range in this
// package goes through here so it stays bounds-checked in one place
// (spec.md section 4.1, "Text extraction rule").
func TextOf(content []byte, node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := int(node.StartByte()), int(node.EndByte())
	if start < 0 || end > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

// Lines returns the 1-based start/end line numbers spanned by node.
func Lines(node *tree_sitter.Node) (start, end int) {
	if node == nil {
		return 0, 0
	}
	return int(node.StartPosition().Row) + 1, int(node.EndPosition().Row) + 1
}
