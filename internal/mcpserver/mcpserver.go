// Package mcpserver wires a repomap.RepoMap's fixed six-tool dispatcher to
// the Model Context Protocol, following the teacher's internal/mcp/server.go
// NewServer/AddTool/Run sequence collapsed to that fixed surface. Both
// cmd/repomap-mcp and cmd/repomap's serve subcommand share this so there is
// one MCP transport wiring, not two copies.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/repomap/internal/dispatch"
	"github.com/standardbeagle/repomap/internal/lcidebug"
	"github.com/standardbeagle/repomap/internal/repomap"
)

// Serve registers rm's tools on a new MCP server and runs it over stdio
// until ctx is cancelled or the transport reports an error.
func Serve(ctx context.Context, rm *repomap.RepoMap) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "repomap-mcp",
		Version: "0.1.0",
	}, nil)

	registerTools(server, rm)

	lcidebug.Log("starting MCP server with stdio transport")
	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerTools(server *mcp.Server, rm *repomap.RepoMap) {
	for _, def := range rm.GetToolDefinitions() {
		name := def.Name
		server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTool(rm, name, req)
		})
	}
}

func handleTool(rm *repomap.RepoMap, name string, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := rm.ExecuteTool(name, req.Params.Arguments)
	return toolResultToMCP(result)
}

func toolResultToMCP(result dispatch.ToolResult) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: !result.Success,
	}, nil
}
