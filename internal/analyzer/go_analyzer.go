package analyzer

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"time"

	"github.com/standardbeagle/repomap/internal/types"
)

// GoAnalyzer extracts functions, methods, structs, imports, and calls from
// Go source using the standard library's own AST, exactly as the teacher
// does (internal/analysis/go_analyzer.go) -- Go is the one language in the
// spec's table where a parser-generator grammar is unnecessary because the
// language ships an authoritative parser.
type GoAnalyzer struct{}

func NewGoAnalyzer() *GoAnalyzer { return &GoAnalyzer{} }

func (a *GoAnalyzer) Language() string     { return "go" }
func (a *GoAnalyzer) Extensions() []string { return []string{".go"} }

func (a *GoAnalyzer) Analyze(path string, text []byte) types.FileAnalysis {
	fa := types.FileAnalysis{
		Path:        path,
		Language:    "go",
		ContentHash: ContentHash(text),
		Size:        int64(len(text)),
		ModifiedAt:  time.Now(),
	}

	fset := token.NewFileSet()
	astFile, err := parser.ParseFile(fset, path, text, parser.ParseComments)
	if err != nil {
		fa.ParseErrors = append(fa.ParseErrors, types.ParseError{
			Message:  err.Error(),
			Severity: types.SeverityError,
		})
		fa.Functions, fa.Structs, fa.Imports = regexGoFallback(text)
		fa.ParseErrors = append(fa.ParseErrors, types.ParseError{Severity: types.SeverityDegraded, Message: "fell back to regex extraction"})
		return fa
	}

	pos := func(p token.Pos) token.Position { return fset.Position(p) }

	for _, imp := range astFile.Imports {
		modPath := strings.Trim(imp.Path.Value, `"`)
		alias := ""
		if imp.Name != nil {
			alias = imp.Name.Name
		}
		fa.Imports = append(fa.Imports, types.ImportStatement{
			Module:     modPath,
			Alias:      alias,
			IsRelative: strings.HasPrefix(modPath, "."),
			Line:       pos(imp.Pos()).Line,
		})
	}

	ast.Inspect(astFile, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.FuncDecl:
			fa.Functions = append(fa.Functions, goFunctionSignature(decl, pos))
			if decl.Name.IsExported() {
				fa.Exports = append(fa.Exports, types.ExportStatement{
					Name: decl.Name.Name,
					Kind: types.ExportKindFunction,
					Line: pos(decl.Pos()).Line,
				})
			}
			if decl.Body != nil {
				ast.Inspect(decl.Body, func(n ast.Node) bool {
					if call, ok := n.(*ast.CallExpr); ok {
						fa.Calls = append(fa.Calls, goFunctionCall(call, pos))
					}
					return true
				})
			}
		case *ast.GenDecl:
			for _, spec := range decl.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if st, ok := s.Type.(*ast.StructType); ok {
						sig := goStructSignature(s, st, pos)
						fa.Structs = append(fa.Structs, sig)
						if sig.IsPublic {
							fa.Exports = append(fa.Exports, types.ExportStatement{
								Name: s.Name.Name,
								Kind: types.ExportKindType,
								Line: pos(s.Pos()).Line,
							})
						}
					}
				case *ast.ValueSpec:
					if decl.Tok != token.CONST {
						continue
					}
					for _, name := range s.Names {
						if name.IsExported() {
							fa.Exports = append(fa.Exports, types.ExportStatement{
								Name: name.Name,
								Kind: types.ExportKindValue,
								Line: pos(name.Pos()).Line,
							})
						}
					}
				}
			}
		}
		return true
	})

	return fa
}

func goFunctionSignature(decl *ast.FuncDecl, pos func(token.Pos) token.Position) types.FunctionSignature {
	receiver := ""
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		receiver = goTypeString(decl.Recv.List[0].Type)
	}

	var params []types.Parameter
	if decl.Type.Params != nil {
		for _, field := range decl.Type.Params.List {
			typeStr := goTypeString(field.Type)
			if len(field.Names) == 0 {
				params = append(params, types.Parameter{Type: typeStr})
				continue
			}
			for _, name := range field.Names {
				params = append(params, types.Parameter{Name: name.Name, Type: typeStr})
			}
		}
	}

	returnType := ""
	if decl.Type.Results != nil && len(decl.Type.Results.List) > 0 {
		var parts []string
		for _, r := range decl.Type.Results.List {
			parts = append(parts, goTypeString(r.Type))
		}
		returnType = strings.Join(parts, ", ")
		if len(decl.Type.Results.List) > 1 {
			returnType = "(" + returnType + ")"
		}
	}

	start := pos(decl.Pos()).Line
	end := pos(decl.End()).Line

	return types.FunctionSignature{
		Name:       decl.Name.Name,
		Receiver:   receiver,
		Params:     params,
		ReturnType: returnType,
		IsPublic:   decl.Name.IsExported(),
		IsAsync:    false, // Go has no async keyword
		StartLine:  start,
		EndLine:    end,
	}
}

func goStructSignature(spec *ast.TypeSpec, st *ast.StructType, pos func(token.Pos) token.Position) types.StructSignature {
	var fields []types.StructField
	if st.Fields != nil {
		for _, field := range st.Fields.List {
			typeStr := goTypeString(field.Type)
			if len(field.Names) == 0 {
				// embedded field; the field name is the type name
				fields = append(fields, types.StructField{
					Name:     typeStr,
					Type:     typeStr,
					IsPublic: isExportedName(typeStr),
				})
				continue
			}
			for _, name := range field.Names {
				fields = append(fields, types.StructField{
					Name:     name.Name,
					Type:     typeStr,
					IsPublic: name.IsExported(),
				})
			}
		}
	}

	return types.StructSignature{
		Name:      spec.Name.Name,
		Fields:    fields,
		IsPublic:  spec.Name.IsExported(),
		StartLine: pos(spec.Pos()).Line,
		EndLine:   pos(spec.End()).Line,
	}
}

func goFunctionCall(call *ast.CallExpr, pos func(token.Pos) token.Position) types.FunctionCall {
	p := pos(call.Pos())
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return types.FunctionCall{Callee: fn.Name, Line: p.Line, Column: p.Column}
	case *ast.SelectorExpr:
		receiver := ""
		if ident, ok := fn.X.(*ast.Ident); ok {
			receiver = ident.Name
		}
		return types.FunctionCall{Callee: fn.Sel.Name, Receiver: receiver, Line: p.Line, Column: p.Column}
	default:
		return types.FunctionCall{Callee: "<anonymous>", Line: p.Line, Column: p.Column}
	}
}

func goTypeString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + goTypeString(t.X)
	case *ast.SelectorExpr:
		return goTypeString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		return "[]" + goTypeString(t.Elt)
	case *ast.MapType:
		return "map[" + goTypeString(t.Key) + "]" + goTypeString(t.Value)
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.FuncType:
		return "func"
	case *ast.Ellipsis:
		return "..." + goTypeString(t.Elt)
	default:
		return "unknown"
	}
}

func isExportedName(name string) bool {
	name = strings.TrimPrefix(name, "*")
	return len(name) > 0 && strings.ToUpper(name[:1]) == name[:1]
}
