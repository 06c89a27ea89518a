package analyzer

import (
	"regexp"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/repomap/internal/tsparser"
	"github.com/standardbeagle/repomap/internal/types"
)

// RustAnalyzer extracts fn/struct/use declarations using the Rust
// tree-sitter grammar (spec.md section 4.1's Rust row: pub keyword for
// visibility, async keyword for async detection, associated fn inside
// impl/trait blocks counted as independent functions).
type RustAnalyzer struct {
	pool *tsparser.Pool
}

func NewRustAnalyzer(pool *tsparser.Pool) *RustAnalyzer {
	return &RustAnalyzer{pool: pool}
}

func (a *RustAnalyzer) Language() string     { return "rust" }
func (a *RustAnalyzer) Extensions() []string { return []string{".rs"} }

func (a *RustAnalyzer) Analyze(path string, text []byte) types.FileAnalysis {
	fa := types.FileAnalysis{
		Path:        path,
		Language:    "rust",
		ContentHash: ContentHash(text),
		Size:        int64(len(text)),
		ModifiedAt:  time.Now(),
	}

	buf := make([]byte, len(text))
	copy(buf, text)

	tree, ok := a.pool.Parse(tsparser.LangRust, path, buf)
	if !ok {
		fa.Functions, fa.Structs, fa.Imports = regexRustFallback(text)
		fa.ParseErrors = append(fa.ParseErrors, types.ParseError{
			Severity: types.SeverityDegraded,
			Message:  "tree-sitter parse failed; used regex fallback",
		})
		return fa
	}
	defer tree.Close()
	if tree.RootNode().HasError() {
		fa.ParseErrors = append(fa.ParseErrors, types.ParseError{
			Severity: types.SeverityError,
			Message:  "syntax errors in source; extracted from the error-recovered tree",
		})
	}

	w := &rustWalker{content: buf, fa: &fa}
	w.walk(tree.RootNode(), "")
	return fa
}

type rustWalker struct {
	content []byte
	fa      *types.FileAnalysis
}

func (w *rustWalker) walk(node *tree_sitter.Node, implType string) {
	if node == nil {
		return
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(uint(i))
		switch child.Kind() {
		case "function_item":
			w.extractFunction(child, implType)
		case "struct_item":
			w.extractStruct(child)
			w.walk(child, "")
		case "impl_item":
			w.walk(child, implTypeName(w.content, child))
		case "trait_item":
			name := ""
			if n := child.ChildByFieldName("name"); n != nil {
				name = tsparser.TextOf(w.content, n)
			}
			w.walk(child, name)
		case "mod_item", "declaration_list":
			w.walk(child, implType)
		case "use_declaration":
			w.extractUse(child)
		default:
			w.walk(child, implType)
		}
	}
}

func implTypeName(content []byte, implNode *tree_sitter.Node) string {
	if n := implNode.ChildByFieldName("type"); n != nil {
		return tsparser.TextOf(content, n)
	}
	return ""
}

func (w *rustWalker) extractFunction(node *tree_sitter.Node, implType string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := tsparser.TextOf(w.content, nameNode)
	full := tsparser.TextOf(w.content, node)
	fnKeywordIdx := strings.Index(full, "fn ")
	prefix := full
	if fnKeywordIdx >= 0 {
		prefix = full[:fnKeywordIdx]
	}
	isPub := strings.Contains(prefix, "pub")
	isAsync := strings.Contains(prefix, "async")

	var params []types.Parameter
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = rustParams(w.content, p)
	}

	returnType := ""
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		returnType = tsparser.TextOf(w.content, rt)
	}

	start, end := tsparser.Lines(node)
	w.fa.Functions = append(w.fa.Functions, types.FunctionSignature{
		Name:       name,
		Receiver:   implType,
		Params:     params,
		ReturnType: returnType,
		IsPublic:   isPub,
		IsAsync:    isAsync,
		StartLine:  start,
		EndLine:    end,
	})
	if isPub {
		w.fa.Exports = append(w.fa.Exports, types.ExportStatement{Name: name, Kind: types.ExportKindFunction, Line: start})
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.collectCalls(body)
	}
}

func rustParams(content []byte, node *tree_sitter.Node) []types.Parameter {
	var params []types.Parameter
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		p := node.NamedChild(uint(i))
		switch p.Kind() {
		case "self_parameter":
			params = append(params, types.Parameter{Name: "self", Type: tsparser.TextOf(content, p)})
		case "parameter":
			param := types.Parameter{}
			if pat := p.ChildByFieldName("pattern"); pat != nil {
				param.Name = tsparser.TextOf(content, pat)
			}
			if t := p.ChildByFieldName("type"); t != nil {
				param.Type = tsparser.TextOf(content, t)
				param.Mutable = strings.HasPrefix(param.Type, "&mut ")
			}
			params = append(params, param)
		}
	}
	return params
}

func (w *rustWalker) extractStruct(node *tree_sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := tsparser.TextOf(w.content, nameNode)
	full := tsparser.TextOf(w.content, node)
	isPub := strings.HasPrefix(strings.TrimSpace(full), "pub")
	start, end := tsparser.Lines(node)

	var fields []types.StructField
	if body := node.ChildByFieldName("body"); body != nil {
		count := int(body.NamedChildCount())
		for i := 0; i < count; i++ {
			f := body.NamedChild(uint(i))
			if f.Kind() != "field_declaration" {
				continue
			}
			fieldText := tsparser.TextOf(w.content, f)
			fname := ""
			if n := f.ChildByFieldName("name"); n != nil {
				fname = tsparser.TextOf(w.content, n)
			}
			ftype := ""
			if t := f.ChildByFieldName("type"); t != nil {
				ftype = tsparser.TextOf(w.content, t)
			}
			fields = append(fields, types.StructField{
				Name:     fname,
				Type:     ftype,
				IsPublic: strings.HasPrefix(strings.TrimSpace(fieldText), "pub"),
			})
		}
	}

	w.fa.Structs = append(w.fa.Structs, types.StructSignature{
		Name:      name,
		Fields:    fields,
		IsPublic:  isPub,
		StartLine: start,
		EndLine:   end,
	})
	if isPub {
		w.fa.Exports = append(w.fa.Exports, types.ExportStatement{Name: name, Kind: types.ExportKindType, Line: start})
	}
}

func (w *rustWalker) extractUse(node *tree_sitter.Node) {
	start, _ := tsparser.Lines(node)
	argNode := node.ChildByFieldName("argument")
	if argNode == nil {
		return
	}
	module, items, alias := flattenUseTree(w.content, argNode)
	w.fa.Imports = append(w.fa.Imports, types.ImportStatement{
		Module:     module,
		Items:      items,
		Alias:      alias,
		IsRelative: strings.HasPrefix(module, "self") || strings.HasPrefix(module, "super") || strings.HasPrefix(module, "crate"),
		Line:       start,
	})
}

func flattenUseTree(content []byte, node *tree_sitter.Node) (module string, items []string, alias string) {
	switch node.Kind() {
	case "use_as_clause":
		path := node.ChildByFieldName("path")
		aliasNode := node.ChildByFieldName("alias")
		return tsparser.TextOf(content, path), nil, tsparser.TextOf(content, aliasNode)
	case "use_list":
		var names []string
		count := int(node.NamedChildCount())
		for i := 0; i < count; i++ {
			names = append(names, tsparser.TextOf(content, node.NamedChild(uint(i))))
		}
		return "", names, ""
	case "scoped_use_list":
		path := node.ChildByFieldName("path")
		list := node.ChildByFieldName("list")
		_, items, _ := flattenUseTree(content, list)
		return tsparser.TextOf(content, path), items, ""
	default:
		return tsparser.TextOf(content, node), nil, ""
	}
}

func (w *rustWalker) collectCalls(body *tree_sitter.Node) {
	var visit func(n *tree_sitter.Node)
	visit = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "call_expression" {
			if fnNode := n.ChildByFieldName("function"); fnNode != nil {
				w.fa.Calls = append(w.fa.Calls, rustCallFromNode(w.content, fnNode))
			}
		}
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			visit(n.NamedChild(uint(i)))
		}
	}
	visit(body)
}

func rustCallFromNode(content []byte, fnNode *tree_sitter.Node) types.FunctionCall {
	line, _ := tsparser.Lines(fnNode)
	if fnNode.Kind() == "field_expression" {
		obj := fnNode.ChildByFieldName("value")
		field := fnNode.ChildByFieldName("field")
		return types.FunctionCall{
			Callee:   tsparser.TextOf(content, field),
			Receiver: tsparser.TextOf(content, obj),
			Line:     line,
		}
	}
	return types.FunctionCall{Callee: tsparser.TextOf(content, fnNode), Line: line}
}

// Regex fallback for malformed Rust source (spec.md section 4.1 step 3).
var (
	rustFnRe     = regexp.MustCompile(`(?m)^\s*(pub(?:\([^)]*\))?\s+)?(async\s+)?(?:const\s+|extern\s+"[^"]*"\s+)?fn\s+(\w+)`)
	rustStructRe = regexp.MustCompile(`(?m)^\s*(pub(?:\([^)]*\))?\s+)?struct\s+(\w+)`)
	rustUseRe    = regexp.MustCompile(`(?m)^\s*use\s+([\w:]+(?:::\{[^}]*\})?)\s*;`)
)

func regexRustFallback(text []byte) ([]types.FunctionSignature, []types.StructSignature, []types.ImportStatement) {
	content := string(text)
	var functions []types.FunctionSignature
	var structs []types.StructSignature
	var imports []types.ImportStatement

	for _, m := range rustFnRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[6]:m[7]]
		line := lineOf(content, m[0])
		functions = append(functions, types.FunctionSignature{
			Name:      name,
			IsPublic:  m[2] != -1,
			IsAsync:   m[4] != -1,
			StartLine: line,
			EndLine:   line,
		})
	}
	for _, m := range rustStructRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[4]:m[5]]
		line := lineOf(content, m[0])
		structs = append(structs, types.StructSignature{
			Name:      name,
			IsPublic:  m[2] != -1,
			StartLine: line,
			EndLine:   line,
		})
	}
	for _, m := range rustUseRe.FindAllStringSubmatchIndex(content, -1) {
		mod := content[m[2]:m[3]]
		imports = append(imports, types.ImportStatement{Module: mod, Line: lineOf(content, m[0])})
	}

	return functions, structs, imports
}
