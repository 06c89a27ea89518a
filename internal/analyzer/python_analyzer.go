package analyzer

import (
	"regexp"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/repomap/internal/tsparser"
	"github.com/standardbeagle/repomap/internal/types"
)

// PythonAnalyzer extracts def/class/import declarations using the Python
// tree-sitter grammar, falling back to the teacher's own regex approach
// (internal/analysis/python_analyzer.go, which the teacher runs as its
// primary strategy) when the grammar cannot produce a usable tree.
type PythonAnalyzer struct {
	pool *tsparser.Pool
}

func NewPythonAnalyzer(pool *tsparser.Pool) *PythonAnalyzer {
	return &PythonAnalyzer{pool: pool}
}

func (a *PythonAnalyzer) Language() string     { return "python" }
func (a *PythonAnalyzer) Extensions() []string { return []string{".py", ".pyi", ".pyw"} }

func (a *PythonAnalyzer) Analyze(path string, text []byte) types.FileAnalysis {
	fa := types.FileAnalysis{
		Path:        path,
		Language:    "python",
		ContentHash: ContentHash(text),
		Size:        int64(len(text)),
		ModifiedAt:  time.Now(),
	}

	buf := make([]byte, len(text))
	copy(buf, text)

	tree, ok := a.pool.Parse(tsparser.LangPython, path, buf)
	if !ok {
		functions, structs, imports := regexPythonFallback(text)
		fa.Functions, fa.Structs, fa.Imports = functions, structs, imports
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

	w := &pyWalker{content: buf, fa: &fa}
	w.walk(tree.RootNode(), nil)
	return fa
}

type pyWalker struct {
	content []byte
	fa      *types.FileAnalysis
}

func (w *pyWalker) walk(node *tree_sitter.Node, class *tree_sitter.Node) {
	if node == nil {
		return
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(uint(i))
		switch child.Kind() {
		case "function_definition":
			w.extractFunction(child, class)
			w.walk(child, nil)
		case "class_definition":
			w.extractClass(child)
			w.walk(child, child)
		case "decorated_definition":
			w.walk(child, class)
		case "import_statement", "import_from_statement":
			w.extractImport(child)
		default:
			w.walk(child, class)
		}
	}
}

func (w *pyWalker) extractFunction(node *tree_sitter.Node, class *tree_sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := tsparser.TextOf(w.content, nameNode)
	isAsync := strings.HasPrefix(tsparser.TextOf(w.content, node), "async")

	var params []types.Parameter
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		params = pyParams(w.content, paramsNode)
	}

	returnType := ""
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		returnType = tsparser.TextOf(w.content, rt)
	}

	start, end := tsparser.Lines(node)
	w.fa.Functions = append(w.fa.Functions, types.FunctionSignature{
		Name:       name,
		Receiver:   classReceiver(w.content, class),
		Params:     params,
		ReturnType: returnType,
		IsPublic:   pyIsPublic(name),
		IsAsync:    isAsync,
		StartLine:  start,
		EndLine:    end,
	})
	if pyIsPublic(name) && class == nil {
		start, _ := tsparser.Lines(node)
		w.fa.Exports = append(w.fa.Exports, types.ExportStatement{Name: name, Kind: types.ExportKindFunction, Line: start})
	}
	w.collectCalls(node)
}

func classReceiver(content []byte, class *tree_sitter.Node) string {
	if class == nil {
		return ""
	}
	if n := class.ChildByFieldName("name"); n != nil {
		return tsparser.TextOf(content, n)
	}
	return ""
}

func pyParams(content []byte, node *tree_sitter.Node) []types.Parameter {
	var params []types.Parameter
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		p := node.NamedChild(uint(i))
		switch p.Kind() {
		case "identifier":
			params = append(params, types.Parameter{Name: tsparser.TextOf(content, p)})
		case "typed_parameter":
			nameNode := p.NamedChild(0)
			param := types.Parameter{Name: tsparser.TextOf(content, nameNode)}
			if t := p.ChildByFieldName("type"); t != nil {
				param.Type = tsparser.TextOf(content, t)
			}
			params = append(params, param)
		case "default_parameter", "typed_default_parameter":
			nameNode := p.ChildByFieldName("name")
			param := types.Parameter{Name: tsparser.TextOf(content, nameNode), HasDefault: true}
			if v := p.ChildByFieldName("value"); v != nil {
				param.Default = tsparser.TextOf(content, v)
			}
			if t := p.ChildByFieldName("type"); t != nil {
				param.Type = tsparser.TextOf(content, t)
			}
			params = append(params, param)
		}
	}
	return params
}

func (w *pyWalker) extractClass(node *tree_sitter.Node) {
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
			stmt := body.NamedChild(uint(i))
			if stmt.Kind() == "expression_statement" {
				if assign := stmt.NamedChild(0); assign != nil && assign.Kind() == "assignment" {
					if lhs := assign.ChildByFieldName("left"); lhs != nil && lhs.Kind() == "identifier" {
						fname := tsparser.TextOf(w.content, lhs)
						fields = append(fields, types.StructField{Name: fname, IsPublic: pyIsPublic(fname)})
					}
				}
			}
		}
	}

	w.fa.Structs = append(w.fa.Structs, types.StructSignature{
		Name:      name,
		Fields:    fields,
		IsPublic:  pyIsPublic(name),
		StartLine: start,
		EndLine:   end,
	})
	if pyIsPublic(name) {
		w.fa.Exports = append(w.fa.Exports, types.ExportStatement{Name: name, Kind: types.ExportKindType, Line: start})
	}
}

func (w *pyWalker) extractImport(node *tree_sitter.Node) {
	start, _ := tsparser.Lines(node)
	if node.Kind() == "import_statement" {
		count := int(node.NamedChildCount())
		for i := 0; i < count; i++ {
			n := node.NamedChild(uint(i))
			switch n.Kind() {
			case "dotted_name", "identifier":
				w.fa.Imports = append(w.fa.Imports, types.ImportStatement{Module: tsparser.TextOf(w.content, n), Line: start})
			case "aliased_import":
				modNode := n.ChildByFieldName("name")
				aliasNode := n.ChildByFieldName("alias")
				w.fa.Imports = append(w.fa.Imports, types.ImportStatement{
					Module: tsparser.TextOf(w.content, modNode),
					Alias:  tsparser.TextOf(w.content, aliasNode),
					Line:   start,
				})
			}
		}
		return
	}

	// import_from_statement
	moduleNode := node.ChildByFieldName("module_name")
	module := tsparser.TextOf(w.content, moduleNode)
	isRelative := strings.HasPrefix(module, ".")
	var items []string
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		n := node.NamedChild(uint(i))
		if n.Kind() == "dotted_name" || n.Kind() == "identifier" {
			text := tsparser.TextOf(w.content, n)
			if text != module {
				items = append(items, text)
			}
		}
		if n.Kind() == "wildcard_import" {
			items = append(items, "*")
		}
	}
	w.fa.Imports = append(w.fa.Imports, types.ImportStatement{
		Module:     module,
		Items:      items,
		IsRelative: isRelative,
		Line:       start,
	})
}

func (w *pyWalker) collectCalls(fn *tree_sitter.Node) {
	var visit func(n *tree_sitter.Node)
	visit = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "call" {
			if fnNode := n.ChildByFieldName("function"); fnNode != nil {
				w.fa.Calls = append(w.fa.Calls, pyCallFromNode(w.content, fnNode))
			}
		}
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			visit(n.NamedChild(uint(i)))
		}
	}
	if body := fn.ChildByFieldName("body"); body != nil {
		visit(body)
	}
}

func pyCallFromNode(content []byte, fnNode *tree_sitter.Node) types.FunctionCall {
	line, _ := tsparser.Lines(fnNode)
	if fnNode.Kind() == "attribute" {
		obj := fnNode.ChildByFieldName("object")
		attr := fnNode.ChildByFieldName("attribute")
		return types.FunctionCall{
			Callee:   tsparser.TextOf(content, attr),
			Receiver: tsparser.TextOf(content, obj),
			Line:     line,
		}
	}
	return types.FunctionCall{Callee: tsparser.TextOf(content, fnNode), Line: line}
}

func pyIsPublic(name string) bool {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return true // dunder methods are public per spec.md's Python scenario
	}
	return !strings.HasPrefix(name, "_")
}

// Regex fallback, grounded on the teacher's actual (regex-driven)
// internal/analysis/python_analyzer.go extraction patterns.
var (
	pyClassRe    = regexp.MustCompile(`(?m)^class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	pyFunctionRe = regexp.MustCompile(`(?m)^(\s*)(async\s+)?def\s+(\w+)\s*\(([^)]*)\)(?:\s*->\s*([^:]+))?\s*:`)
	pyImportRe   = regexp.MustCompile(`(?m)^import\s+(.+)$`)
	pyFromRe     = regexp.MustCompile(`(?m)^from\s+(\S+)\s+import\s+(.+)$`)
)

func regexPythonFallback(text []byte) ([]types.FunctionSignature, []types.StructSignature, []types.ImportStatement) {
	content := string(text)
	var functions []types.FunctionSignature
	var structs []types.StructSignature
	var imports []types.ImportStatement

	for _, m := range pyFunctionRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[6]:m[7]]
		isAsync := m[4] != -1
		line := lineOf(content, m[0])
		functions = append(functions, types.FunctionSignature{
			Name:      name,
			IsPublic:  pyIsPublic(name),
			IsAsync:   isAsync,
			StartLine: line,
			EndLine:   line,
		})
	}

	for _, m := range pyClassRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[2]:m[3]]
		line := lineOf(content, m[0])
		structs = append(structs, types.StructSignature{
			Name:      name,
			IsPublic:  pyIsPublic(name),
			StartLine: line,
			EndLine:   line,
		})
	}

	for _, m := range pyImportRe.FindAllStringSubmatchIndex(content, -1) {
		mod := strings.TrimSpace(content[m[2]:m[3]])
		imports = append(imports, types.ImportStatement{Module: mod, Line: lineOf(content, m[0])})
	}
	for _, m := range pyFromRe.FindAllStringSubmatchIndex(content, -1) {
		mod := content[m[2]:m[3]]
		items := strings.Split(content[m[4]:m[5]], ",")
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
		}
		imports = append(imports, types.ImportStatement{
			Module:     mod,
			Items:      items,
			IsRelative: strings.HasPrefix(mod, "."),
			Line:       lineOf(content, m[0]),
		})
	}

	return functions, structs, imports
}
