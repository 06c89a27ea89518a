package analyzer

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/repomap/internal/tsparser"
	"github.com/standardbeagle/repomap/internal/types"
)

// JSAnalyzer extracts function/class/import declarations from JavaScript and
// TypeScript sources, sharing one implementation across both grammars since
// the TS grammar is a syntactic superset for the constructs spec.md's table
// cares about (function/arrow/class-method, export keyword or TS access
// modifiers for visibility, async keyword). The concrete grammar picked per
// file is driven by extension: .ts/.tsx get the TypeScript/TSX grammar,
// everything else gets JavaScript.
type JSAnalyzer struct {
	pool *tsparser.Pool
}

func NewJSAnalyzer(pool *tsparser.Pool) *JSAnalyzer {
	return &JSAnalyzer{pool: pool}
}

func (a *JSAnalyzer) Language() string { return "javascript" }
func (a *JSAnalyzer) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}
}

func (a *JSAnalyzer) grammarFor(path string) tsparser.Lang {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return tsparser.LangTSX
	case ".ts", ".mts", ".cts":
		return tsparser.LangTypeScript
	default:
		return tsparser.LangJavaScript
	}
}

func (a *JSAnalyzer) langLabel(path string) string {
	switch a.grammarFor(path) {
	case tsparser.LangTypeScript, tsparser.LangTSX:
		return "typescript"
	default:
		return "javascript"
	}
}

func (a *JSAnalyzer) Analyze(path string, text []byte) types.FileAnalysis {
	fa := types.FileAnalysis{
		Path:        path,
		Language:    a.langLabel(path),
		ContentHash: ContentHash(text),
		Size:        int64(len(text)),
		ModifiedAt:  time.Now(),
	}

	buf := make([]byte, len(text))
	copy(buf, text)

	tree, ok := a.pool.Parse(a.grammarFor(path), path, buf)
	if !ok {
		fa.Functions, fa.Structs, fa.Imports = regexJSFallback(text)
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

	w := &jsWalker{content: buf, fa: &fa}
	w.walk(tree.RootNode(), "", false)
	return fa
}

type jsWalker struct {
	content []byte
	fa      *types.FileAnalysis
}

// walk recurses the tree carrying the enclosing class name (receiver) and
// whether the current declaration sits directly under an export statement.
func (w *jsWalker) walk(node *tree_sitter.Node, class string, exported bool) {
	if node == nil {
		return
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(uint(i))
		switch child.Kind() {
		case "export_statement":
			w.walk(child, class, true)
		case "function_declaration", "generator_function_declaration":
			w.extractFunction(child, "", exported)
		case "class_declaration":
			w.extractClass(child, exported)
			w.walk(child, jsNodeName(w.content, child), false)
		case "class_body":
			w.walk(child, class, false)
		case "method_definition":
			w.extractMethod(child, class)
		case "lexical_declaration", "variable_declaration":
			w.extractVariableBoundFunctions(child, exported)
		default:
			w.walk(child, class, false)
		}
	}
}

func jsNodeName(content []byte, node *tree_sitter.Node) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return tsparser.TextOf(content, n)
	}
	return ""
}

func (w *jsWalker) extractFunction(node *tree_sitter.Node, receiver string, exported bool) {
	nameNode := node.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = tsparser.TextOf(w.content, nameNode)
	}
	w.appendFunction(node, name, receiver, exported)
}

func (w *jsWalker) extractMethod(node *tree_sitter.Node, class string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := tsparser.TextOf(w.content, nameNode)
	prefix := methodModifierText(w.content, node)
	isPrivate := strings.HasPrefix(name, "#") || strings.Contains(prefix, "private")
	w.appendFunctionWithVisibility(node, name, class, !isPrivate)
}

func methodModifierText(content []byte, node *tree_sitter.Node) string {
	nameNode := node.ChildByFieldName("name")
	full := tsparser.TextOf(content, node)
	if nameNode == nil {
		return full
	}
	nameText := tsparser.TextOf(content, nameNode)
	if idx := strings.Index(full, nameText); idx >= 0 {
		return full[:idx]
	}
	return full
}

// extractVariableBoundFunctions handles `const foo = () => {}` / `const foo =
// async function () {}` top-level bindings, which spec.md's JS/TS row treats
// as functions in their own right.
func (w *jsWalker) extractVariableBoundFunctions(node *tree_sitter.Node, exported bool) {
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		decl := node.NamedChild(uint(i))
		if decl.Kind() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		valueNode := decl.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}
		switch valueNode.Kind() {
		case "arrow_function", "function_expression", "generator_function":
			name := tsparser.TextOf(w.content, nameNode)
			w.appendFunctionUsingSignature(valueNode, name, "", exported)
		}
	}
}

func (w *jsWalker) appendFunction(node *tree_sitter.Node, name, receiver string, exported bool) {
	w.appendFunctionWithVisibility(node, name, receiver, exported)
}

func (w *jsWalker) appendFunctionWithVisibility(node *tree_sitter.Node, name, receiver string, isPublic bool) {
	w.appendFunctionUsingSignature(node, name, receiver, isPublic)
}

func (w *jsWalker) appendFunctionUsingSignature(node *tree_sitter.Node, name, receiver string, isPublic bool) {
	full := tsparser.TextOf(w.content, node)
	isAsync := strings.HasPrefix(strings.TrimSpace(full), "async")

	var params []types.Parameter
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = jsParams(w.content, p)
	} else if p := node.ChildByFieldName("parameter"); p != nil {
		// arrow functions with a single unparenthesized parameter
		params = []types.Parameter{{Name: tsparser.TextOf(w.content, p)}}
	}

	returnType := ""
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		// TS type_annotation nodes include the leading ':'
		returnType = strings.TrimSpace(strings.TrimPrefix(tsparser.TextOf(w.content, rt), ":"))
	}

	start, end := tsparser.Lines(node)
	w.fa.Functions = append(w.fa.Functions, types.FunctionSignature{
		Name:       name,
		Receiver:   receiver,
		Params:     params,
		ReturnType: returnType,
		IsPublic:   isPublic,
		IsAsync:    isAsync,
		StartLine:  start,
		EndLine:    end,
	})
	if isPublic && receiver == "" && name != "" {
		w.fa.Exports = append(w.fa.Exports, types.ExportStatement{Name: name, Kind: types.ExportKindFunction, Line: start})
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.collectCalls(body)
	}
}

func jsParams(content []byte, node *tree_sitter.Node) []types.Parameter {
	var params []types.Parameter
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		p := node.NamedChild(uint(i))
		param := types.Parameter{}
		switch p.Kind() {
		case "identifier":
			param.Name = tsparser.TextOf(content, p)
		case "required_parameter", "optional_parameter":
			if pat := p.ChildByFieldName("pattern"); pat != nil {
				param.Name = tsparser.TextOf(content, pat)
			}
			if t := p.ChildByFieldName("type"); t != nil {
				param.Type = tsparser.TextOf(content, t)
			}
			param.HasDefault = p.Kind() == "optional_parameter"
			if v := p.ChildByFieldName("value"); v != nil {
				param.Default = tsparser.TextOf(content, v)
				param.HasDefault = true
			}
		case "assignment_pattern":
			if left := p.ChildByFieldName("left"); left != nil {
				param.Name = tsparser.TextOf(content, left)
			}
			if right := p.ChildByFieldName("right"); right != nil {
				param.Default = tsparser.TextOf(content, right)
				param.HasDefault = true
			}
		case "rest_pattern":
			param.Name = tsparser.TextOf(content, p)
		default:
			param.Name = tsparser.TextOf(content, p)
		}
		params = append(params, param)
	}
	return params
}

func (w *jsWalker) extractClass(node *tree_sitter.Node, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := tsparser.TextOf(w.content, nameNode)
	start, end := tsparser.Lines(node)

	var fields []types.StructField
	if body := node.ChildByFieldName("body"); body != nil {
		count := int(body.NamedChildCount())
		for i := 0; i < count; i++ {
			f := body.NamedChild(uint(i))
			if f.Kind() != "field_definition" && f.Kind() != "public_field_definition" {
				continue
			}
			fnameNode := f.ChildByFieldName("property")
			if fnameNode == nil {
				fnameNode = f.ChildByFieldName("name")
			}
			if fnameNode == nil {
				continue
			}
			fname := tsparser.TextOf(w.content, fnameNode)
			ftype := ""
			if t := f.ChildByFieldName("type"); t != nil {
				ftype = tsparser.TextOf(w.content, t)
			}
			prefix := methodModifierText(w.content, f)
			isPrivate := strings.HasPrefix(fname, "#") || strings.Contains(prefix, "private")
			fields = append(fields, types.StructField{Name: fname, Type: ftype, IsPublic: !isPrivate})
		}
	}

	w.fa.Structs = append(w.fa.Structs, types.StructSignature{
		Name:      name,
		Fields:    fields,
		IsPublic:  exported,
		StartLine: start,
		EndLine:   end,
	})
	if exported {
		w.fa.Exports = append(w.fa.Exports, types.ExportStatement{Name: name, Kind: types.ExportKindType, Line: start})
	}
}

func (w *jsWalker) collectCalls(body *tree_sitter.Node) {
	var visit func(n *tree_sitter.Node)
	visit = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "call_expression" {
			if fnNode := n.ChildByFieldName("function"); fnNode != nil {
				w.fa.Calls = append(w.fa.Calls, jsCallFromNode(w.content, fnNode))
			}
		}
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			visit(n.NamedChild(uint(i)))
		}
	}
	visit(body)
}

func jsCallFromNode(content []byte, fnNode *tree_sitter.Node) types.FunctionCall {
	line, _ := tsparser.Lines(fnNode)
	if fnNode.Kind() == "member_expression" {
		obj := fnNode.ChildByFieldName("object")
		prop := fnNode.ChildByFieldName("property")
		return types.FunctionCall{
			Callee:   tsparser.TextOf(content, prop),
			Receiver: tsparser.TextOf(content, obj),
			Line:     line,
		}
	}
	return types.FunctionCall{Callee: tsparser.TextOf(content, fnNode), Line: line}
}

// Regex fallback for malformed JS/TS source (spec.md section 4.1 step 3).
var (
	jsFunctionRe = regexp.MustCompile(`(?m)^\s*(export\s+)?(default\s+)?(async\s+)?function\*?\s+(\w+)\s*\(`)
	jsArrowRe    = regexp.MustCompile(`(?m)^\s*(export\s+)?(const|let|var)\s+(\w+)\s*=\s*(async\s+)?\(?[^=]*\)?\s*=>`)
	jsClassRe    = regexp.MustCompile(`(?m)^\s*(export\s+)?(default\s+)?class\s+(\w+)`)
	jsImportRe   = regexp.MustCompile(`(?m)^\s*import\s+.*?from\s+['"]([^'"]+)['"]`)
)

func regexJSFallback(text []byte) ([]types.FunctionSignature, []types.StructSignature, []types.ImportStatement) {
	content := string(text)
	var functions []types.FunctionSignature
	var structs []types.StructSignature
	var imports []types.ImportStatement

	for _, m := range jsFunctionRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[8]:m[9]]
		line := lineOf(content, m[0])
		functions = append(functions, types.FunctionSignature{
			Name:      name,
			IsPublic:  m[2] != -1,
			IsAsync:   m[6] != -1,
			StartLine: line,
			EndLine:   line,
		})
	}
	for _, m := range jsArrowRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[6]:m[7]]
		line := lineOf(content, m[0])
		functions = append(functions, types.FunctionSignature{
			Name:      name,
			IsPublic:  m[2] != -1,
			IsAsync:   m[8] != -1,
			StartLine: line,
			EndLine:   line,
		})
	}
	for _, m := range jsClassRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[6]:m[7]]
		line := lineOf(content, m[0])
		structs = append(structs, types.StructSignature{
			Name:      name,
			IsPublic:  m[2] != -1,
			StartLine: line,
			EndLine:   line,
		})
	}
	for _, m := range jsImportRe.FindAllStringSubmatchIndex(content, -1) {
		mod := content[m[2]:m[3]]
		imports = append(imports, types.ImportStatement{
			Module:     mod,
			IsRelative: strings.HasPrefix(mod, "."),
			Line:       lineOf(content, m[0]),
		})
	}

	return functions, structs, imports
}
