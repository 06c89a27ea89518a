package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL reads .repomap.kdl from projectRoot into base, mutating it in
// place. A missing file is not an error -- the builder defaults stand. The
// node-walking style is the teacher's own (internal/config/kdl_config.go,
// which loads .lci.kdl the same way).
func LoadKDL(projectRoot string, base *Config) error {
	path := filepath.Join(projectRoot, ".repomap.kdl")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read .repomap.kdl: %w", err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return fmt.Errorf("parse .repomap.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "languages":
			base.Languages = collectStringArgs(n)
		case "max_files":
			if v, ok := firstIntArg(n); ok {
				base.MaxFiles = v
			}
		case "max_file_size":
			if s, ok := firstStringArg(n); ok {
				if sz, err := parseSize(s); err == nil {
					base.MaxFileSize = sz
				}
			} else if v, ok := firstIntArg(n); ok {
				base.MaxFileSize = int64(v)
			}
		case "max_depth":
			if v, ok := firstIntArg(n); ok {
				base.MaxDepth = v
			}
		case "follow_symlinks":
			if b, ok := firstBoolArg(n); ok {
				base.FollowSymlinks = b
			}
		case "respect_gitignore":
			if b, ok := firstBoolArg(n); ok {
				base.RespectGitignore = b
			}
		case "include":
			base.IncludePatterns = collectStringArgs(n)
		case "exclude":
			base.ExcludePatterns = collectStringArgs(n)
		case "cache_ttl":
			if v, ok := firstIntArg(n); ok {
				base.CacheTTL = time.Duration(v) * time.Second
			}
		}
	}

	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var multiplier int64 = 1
	var numStr string
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
