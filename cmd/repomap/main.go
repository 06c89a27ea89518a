// Command repomap is a thin CLI wrapper around internal/repomap, providing
// a one-shot scan report and a long-running MCP server launcher. Flag
// wiring follows the pack's cobra idiom (mvp-joe-canopy's cmd/canopy/main.go),
// not the teacher's own urfave/cli entry point (see DESIGN.md).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/repomap/internal/mcpserver"
	"github.com/standardbeagle/repomap/internal/repomap"
)

var (
	flagRoot           string
	flagMaxFiles       int
	flagMaxFileSize    int64
	flagMaxDepth       int
	flagFollowSymlinks bool
	flagIncludes       []string
	flagExcludes       []string
	flagJSON           bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "repomap",
	Short:         "Multi-language repository indexer for LLM code-navigation tools",
	Long:          "repomap scans a repository with tree-sitter based analyzers and serves the resulting index over a fixed six-tool query surface.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "repository root to index")
	rootCmd.PersistentFlags().IntVar(&flagMaxFiles, "max-files", 0, "maximum files to index (0 = use default)")
	rootCmd.PersistentFlags().Int64Var(&flagMaxFileSize, "max-file-size", 0, "maximum file size in bytes (0 = use default)")
	rootCmd.PersistentFlags().IntVar(&flagMaxDepth, "max-depth", 0, "maximum directory depth (0 = unlimited)")
	rootCmd.PersistentFlags().BoolVar(&flagFollowSymlinks, "follow-symlinks", false, "follow symbolic links while scanning")
	rootCmd.PersistentFlags().StringSliceVar(&flagIncludes, "include", nil, "glob patterns to include (default: everything not excluded)")
	rootCmd.PersistentFlags().StringSliceVar(&flagExcludes, "exclude", nil, "additional glob patterns to exclude")

	scanCmd.Flags().BoolVar(&flagJSON, "json", false, "print the scan result as JSON")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the repository once and print a summary",
	RunE:  runScan,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scan the repository and start the MCP server over stdio",
	RunE:  runServe,
}

func buildRepoMap() (*repomap.RepoMap, error) {
	b := repomap.NewBuilder(flagRoot).
		FromKDL().
		WithGoAnalyzer().
		WithPythonAnalyzer().
		WithRustAnalyzer().
		WithJavaScriptAnalyzer()

	if flagMaxFiles > 0 {
		b = b.MaxFiles(flagMaxFiles)
	}
	if flagMaxFileSize > 0 {
		b = b.MaxFileSize(flagMaxFileSize)
	}
	if flagMaxDepth > 0 {
		b = b.MaxDepth(flagMaxDepth)
	}
	if flagFollowSymlinks {
		b = b.FollowSymlinks(true)
	}
	if len(flagIncludes) > 0 {
		b = b.IncludePatterns(flagIncludes)
	}
	if len(flagExcludes) > 0 {
		b = b.ExcludePatterns(flagExcludes)
	}

	return b.Build()
}

func runScan(cmd *cobra.Command, args []string) error {
	rm, err := buildRepoMap()
	if err != nil {
		return fmt.Errorf("building repomap: %w", err)
	}

	ctx := context.Background()
	start := time.Now()
	result, err := rm.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}
	elapsed := time.Since(start)

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	root, _ := filepath.Abs(flagRoot)
	fmt.Printf("Scanned %s in %s\n", root, elapsed.Round(time.Millisecond))
	fmt.Printf("Files: %d  Functions: %d  Structs: %d\n", result.FilesScanned, result.FunctionsFound, result.StructsFound)
	if result.Truncated {
		fmt.Println("Warning: scan truncated at max_files")
	}
	if len(result.Errors) > 0 {
		fmt.Printf("Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %v\n", e)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	rm, err := buildRepoMap()
	if err != nil {
		return fmt.Errorf("building repomap: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if _, err := rm.Scan(ctx); err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	return mcpserver.Serve(ctx, rm)
}
