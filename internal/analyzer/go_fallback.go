package analyzer

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/repomap/internal/types"
)

// regexGoFallback matches spec.md section 4.1 step 3: when the structured
// parser yields no usable tree, surface a best-effort surface-syntax scan
// so a malformed file still contributes whatever well-formed headers it
// has, rather than an empty result.
var (
	goFuncRe   = regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s+)?(\w+)\s*\(`)
	goStructRe = regexp.MustCompile(`(?m)^type\s+(\w+)\s+struct\s*\{`)
	goImportRe = regexp.MustCompile(`(?m)^\s*(?:\w+\s+)?"([^"]+)"`)
)

func regexGoFallback(text []byte) ([]types.FunctionSignature, []types.StructSignature, []types.ImportStatement) {
	content := string(text)
	lines := strings.Split(content, "\n")

	var functions []types.FunctionSignature
	for _, m := range goFuncRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[2]:m[3]]
		line := lineOf(content, m[0])
		functions = append(functions, types.FunctionSignature{
			Name:      name,
			IsPublic:  isExportedName(name),
			StartLine: line,
			EndLine:   line,
		})
	}

	var structs []types.StructSignature
	for _, m := range goStructRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[2]:m[3]]
		line := lineOf(content, m[0])
		structs = append(structs, types.StructSignature{
			Name:      name,
			IsPublic:  isExportedName(name),
			StartLine: line,
			EndLine:   line,
		})
	}

	var imports []types.ImportStatement
	inBlock := false
	for i, raw := range lines {
		l := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(l, "import ("):
			inBlock = true
		case inBlock && l == ")":
			inBlock = false
		case inBlock || strings.HasPrefix(l, "import "):
			if m := goImportRe.FindStringSubmatch(l); m != nil {
				imports = append(imports, types.ImportStatement{
					Module:     m[1],
					IsRelative: strings.HasPrefix(m[1], "."),
					Line:       i + 1,
				})
			}
		}
	}

	return functions, structs, imports
}

func lineOf(content string, byteOffset int) int {
	if byteOffset > len(content) {
		byteOffset = len(content)
	}
	return strings.Count(content[:byteOffset], "\n") + 1
}
