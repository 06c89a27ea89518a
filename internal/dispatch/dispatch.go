// Package dispatch exposes the index through exactly six named tools
// (spec.md section 4.5). Schemas are published as jsonschema-go descriptors,
// the same package the teacher wires its MCP tool list from
// (internal/mcp/server.go); this package owns validation and routing only,
// leaving MCP transport wiring to internal/mcpserver.
package dispatch

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/standardbeagle/repomap/internal/errs"
	"github.com/standardbeagle/repomap/internal/index"
	"github.com/standardbeagle/repomap/internal/types"
)

// ToolResult is the fixed envelope for every dispatched call (spec.md
// section 4.5).
type ToolResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ToolDefinition is one entry in get_tool_definitions()'s published list.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Reindexer is the subset of the facade a dispatcher needs to re-run
// analysis on demand for analyze_file.
type Reindexer interface {
	AnalyzeNow(path string) (types.FileAnalysis, error)
}

// Dispatcher routes (tool_name, JSON params) to the index. The tool set is
// closed: no general "run code" or "read arbitrary file" tool is exposed.
type Dispatcher struct {
	repo      *index.RepoMap
	reindexer Reindexer
}

func New(repo *index.RepoMap, reindexer Reindexer) *Dispatcher {
	return &Dispatcher{repo: repo, reindexer: reindexer}
}

// GetToolDefinitions returns the fixed six-tool schema list, the contract
// consumed by LLM agents (spec.md section 6).
func GetToolDefinitions() []ToolDefinition {
	str := func(desc string) *jsonschema.Schema { return &jsonschema.Schema{Type: "string", Description: desc} }
	intSchema := func(desc string) *jsonschema.Schema { return &jsonschema.Schema{Type: "integer", Description: desc} }
	boolSchema := func(desc string) *jsonschema.Schema { return &jsonschema.Schema{Type: "boolean", Description: desc} }

	return []ToolDefinition{
		{
			Name:        "search_functions",
			Description: "Search indexed functions by name pattern (substring, /regex/, or glob).",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"pattern": str("Name pattern to match"),
					"limit":   intSchema("Maximum results to return"),
				},
				Required: []string{"pattern"},
			},
		},
		{
			Name:        "search_structs",
			Description: "Search indexed structs/classes by name pattern (substring, /regex/, or glob).",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"pattern": str("Name pattern to match"),
					"limit":   intSchema("Maximum results to return"),
				},
				Required: []string{"pattern"},
			},
		},
		{
			Name:        "analyze_file",
			Description: "Return the full analysis for one indexed file, re-analyzing on demand if needed.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{"path": str("File path to analyze")},
				Required:   []string{"path"},
			},
		},
		{
			Name:        "get_dependencies",
			Description: "Return the imports and exports declared by one indexed file.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{"path": str("File path to look up")},
				Required:   []string{"path"},
			},
		},
		{
			Name:        "find_callers",
			Description: "Return every call site for a given function name.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"function_name": str("Callee name to look up"),
					"limit":         intSchema("Maximum results to return"),
				},
				Required: []string{"function_name"},
			},
		},
		{
			Name:        "get_repository_tree",
			Description: "Return a summary of the indexed repository: sorted file paths, plus per-language file counts and the total function/struct count when include_counts is set.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"include_counts": boolSchema("Include per-language file counts and the total function/struct count"),
				},
			},
		},
	}
}

// Execute validates params against the named tool's schema and routes to
// the index, matching every violation to the "tool-schema violation"
// taxonomy entry in spec.md section 7.
func (d *Dispatcher) Execute(tool string, params json.RawMessage) ToolResult {
	switch tool {
	case "search_functions":
		return d.searchFunctions(params)
	case "search_structs":
		return d.searchStructs(params)
	case "analyze_file":
		return d.analyzeFile(params)
	case "get_dependencies":
		return d.getDependencies(params)
	case "find_callers":
		return d.findCallers(params)
	case "get_repository_tree":
		return d.getRepositoryTree(params)
	default:
		return errorResult(errs.NewToolError(tool, "unknown tool"))
	}
}

func errorResult(err error) ToolResult {
	return ToolResult{Success: false, Error: err.Error()}
}

func okResult(data interface{}) ToolResult {
	return ToolResult{Success: true, Data: data}
}

type patternParams struct {
	Pattern string `json:"pattern"`
	Limit   int    `json:"limit"`
}

func (d *Dispatcher) searchFunctions(raw json.RawMessage) ToolResult {
	var p patternParams
	if err := json.Unmarshal(raw, &p); err != nil || p.Pattern == "" {
		return errorResult(errs.NewToolError("search_functions", "missing or invalid 'pattern'"))
	}
	matches, err := d.repo.FindFunctions(p.Pattern, p.Limit)
	if err != nil {
		return errorResult(err)
	}
	out := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]interface{}{
			"name":       m.Function.Name,
			"file":       m.File,
			"start_line": m.Function.StartLine,
			"end_line":   m.Function.EndLine,
			"is_public":  m.Function.IsPublic,
			"is_async":   m.Function.IsAsync,
		})
	}
	return okResult(out)
}

func (d *Dispatcher) searchStructs(raw json.RawMessage) ToolResult {
	var p patternParams
	if err := json.Unmarshal(raw, &p); err != nil || p.Pattern == "" {
		return errorResult(errs.NewToolError("search_structs", "missing or invalid 'pattern'"))
	}
	matches, err := d.repo.FindStructs(p.Pattern, p.Limit)
	if err != nil {
		return errorResult(err)
	}
	out := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]interface{}{
			"name":      m.Struct.Name,
			"file":      m.File,
			"fields":    m.Struct.Fields,
			"is_public": m.Struct.IsPublic,
		})
	}
	return okResult(out)
}

type pathParams struct {
	Path string `json:"path"`
}

func (d *Dispatcher) analyzeFile(raw json.RawMessage) ToolResult {
	var p pathParams
	if err := json.Unmarshal(raw, &p); err != nil || p.Path == "" {
		return errorResult(errs.NewToolError("analyze_file", "missing or invalid 'path'"))
	}
	if fa, ok := d.repo.AnalysisByPath(p.Path); ok {
		return okResult(fa)
	}
	if d.reindexer != nil {
		fa, err := d.reindexer.AnalyzeNow(p.Path)
		if err == nil {
			return okResult(fa)
		}
	}
	return errorResult(errs.NewNotFoundError("analyze_file", "not found"))
}

func (d *Dispatcher) getDependencies(raw json.RawMessage) ToolResult {
	var p pathParams
	if err := json.Unmarshal(raw, &p); err != nil || p.Path == "" {
		return errorResult(errs.NewToolError("get_dependencies", "missing or invalid 'path'"))
	}
	imports, exports, ok := d.repo.DependenciesOf(p.Path)
	if !ok {
		return errorResult(errs.NewNotFoundError("get_dependencies", "not found"))
	}
	return okResult(map[string]interface{}{"imports": imports, "exports": exports})
}

type callerParams struct {
	FunctionName string `json:"function_name"`
	Limit        int    `json:"limit"`
}

func (d *Dispatcher) findCallers(raw json.RawMessage) ToolResult {
	var p callerParams
	if err := json.Unmarshal(raw, &p); err != nil || p.FunctionName == "" {
		return errorResult(errs.NewToolError("find_callers", "missing or invalid 'function_name'"))
	}
	sites := d.repo.CallersOf(p.FunctionName, p.Limit)
	return okResult(sites)
}

type treeParams struct {
	IncludeCounts bool `json:"include_counts"`
}

func (d *Dispatcher) getRepositoryTree(raw json.RawMessage) ToolResult {
	var p treeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return errorResult(errs.NewToolError("get_repository_tree", "invalid params"))
		}
	}
	summary := d.repo.RepositoryTree(p.IncludeCounts)
	result := map[string]interface{}{"paths": summary.Paths}
	if p.IncludeCounts {
		result["files_by_language"] = summary.FilesByLanguage
		result["total_entities"] = summary.TotalEntities
	}
	return okResult(result)
}
