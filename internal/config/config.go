// Package config builds and validates the settings a repomap handle is
// constructed from, mirroring the teacher's internal/config package: a
// plain struct assembled by a fluent builder, plus loaders for an optional
// on-disk file (spec.md section 6's builder table).
package config

import (
	"strconv"
	"time"

	"github.com/standardbeagle/repomap/internal/errs"
	"github.com/standardbeagle/repomap/internal/types"
)

// Config holds the fully-resolved settings for one repomap handle.
type Config struct {
	Root             string
	Languages        []string // enabled analyzer languages, e.g. "go", "python"
	MaxFiles         int
	MaxFileSize      int64
	MaxDepth         int // 0 means unlimited
	FollowSymlinks   bool
	IncludePatterns  []string
	ExcludePatterns  []string
	CacheTTL         time.Duration
	RespectGitignore bool
}

// DefaultExcludePatterns matches spec.md section 6's exclude_patterns default.
func DefaultExcludePatterns() []string {
	return []string{"**/target/**", "**/node_modules/**", "**/.git/**"}
}

// Default returns a Config populated with spec.md section 6's default column.
func Default(root string) *Config {
	return &Config{
		Root:             root,
		MaxFiles:         types.DefaultMaxFiles,
		MaxFileSize:      types.DefaultMaxFileSize,
		MaxDepth:         0,
		FollowSymlinks:   false,
		IncludePatterns:  nil,
		ExcludePatterns:  DefaultExcludePatterns(),
		CacheTTL:         types.DefaultCacheTTLSecond * time.Second,
		RespectGitignore: true,
	}
}

// Validate enforces the invariants spec.md section 7 calls a configuration
// error: fatal at build time, never surfaced mid-scan.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errs.NewConfigError("root", c.Root, nil)
	}
	if c.MaxFiles <= 0 {
		return errs.NewConfigError("max_files", strconv.Itoa(c.MaxFiles), nil)
	}
	if c.MaxFileSize <= 0 {
		return errs.NewConfigError("max_file_size", strconv.FormatInt(c.MaxFileSize, 10), nil)
	}
	if c.MaxDepth < 0 {
		return errs.NewConfigError("max_depth", strconv.Itoa(c.MaxDepth), nil)
	}
	if c.CacheTTL < 0 {
		return errs.NewConfigError("cache_ttl", c.CacheTTL.String(), nil)
	}
	if len(c.Languages) == 0 {
		return errs.NewConfigError("languages", "<empty>", nil)
	}
	return nil
}
