// Command repomap-mcp scans a repository and exposes its RepoMap's
// six-tool dispatcher over the Model Context Protocol via stdio, so an LLM
// agent can search, inspect, and traverse the indexed repository.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/standardbeagle/repomap/internal/lcidebug"
	"github.com/standardbeagle/repomap/internal/mcpserver"
	"github.com/standardbeagle/repomap/internal/repomap"
)

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	rm, err := repomap.NewBuilder(root).
		FromKDL().
		WithGoAnalyzer().
		WithPythonAnalyzer().
		WithRustAnalyzer().
		WithJavaScriptAnalyzer().
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "repomap-mcp: failed to build repomap: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		lcidebug.Log("received shutdown signal")
		cancel()
	}()

	lcidebug.Log("scanning %s before serving", root)
	if _, err := rm.Scan(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "repomap-mcp: initial scan failed: %v\n", err)
		os.Exit(1)
	}

	if err := mcpserver.Serve(ctx, rm); err != nil {
		fmt.Fprintf(os.Stderr, "repomap-mcp: server error: %v\n", err)
		os.Exit(1)
	}
}
