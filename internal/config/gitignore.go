package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignoreParser applies .gitignore-style ignore semantics during a scan
// (spec.md section 4.3, "apply ignore-file semantics when present"). Pattern
// matching itself is delegated to doublestar, which already implements the
// ** and glob-class semantics the teacher's own gitignore.go hand-rolled a
// regex compiler for (internal/config/gitignore.go); this package keeps only
// the gitignore-specific parts: negation, directory-only markers, and the
// root-anchoring rule for a leading "/".
type GitignoreParser struct {
	patterns []gitignorePattern
}

type gitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool
}

func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{}
}

// LoadGitignore reads rootPath/.gitignore if present. A missing file is not
// an error; there is simply nothing to ignore.
func (gp *GitignoreParser) LoadGitignore(rootPath string) error {
	file, err := os.Open(filepath.Join(rootPath, ".gitignore"))
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		gp.AddPattern(line)
	}
	return scanner.Err()
}

// AddPattern registers one raw gitignore line, exported for tests and for
// programmatic ignore rules layered on top of a loaded file.
func (gp *GitignoreParser) AddPattern(line string) {
	p := gitignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.Absolute = true
		line = line[1:]
	}
	p.Pattern = line
	gp.patterns = append(gp.patterns, p)
}

// ShouldIgnore reports whether path (relative to the scan root, forward
// slashes) is ignored. Later matching patterns win, matching git's own
// last-match-wins semantics for negation.
func (gp *GitignoreParser) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	ignored := false
	for _, p := range gp.patterns {
		if gp.matches(p, path, isDir) {
			ignored = !p.Negate
		}
	}
	return ignored
}

func (gp *GitignoreParser) matches(p gitignorePattern, path string, isDir bool) bool {
	if p.Directory && !isDir {
		// a directory-only pattern still excludes files underneath it
		return strings.HasPrefix(path, p.Pattern+"/") || gp.globMatch(p, path)
	}
	if p.Absolute {
		return gp.globMatch(p, path)
	}
	if gp.globMatch(p, path) {
		return true
	}
	// relative pattern: try every path suffix, matching git's "matches at
	// any depth unless it contains a slash" rule
	if !strings.Contains(p.Pattern, "/") {
		parts := strings.Split(path, "/")
		for _, part := range parts {
			if ok, _ := doublestar.Match(p.Pattern, part); ok {
				return true
			}
		}
		return false
	}
	parts := strings.Split(path, "/")
	for i := range parts {
		if gp.globMatch(p, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

func (gp *GitignoreParser) globMatch(p gitignorePattern, path string) bool {
	if ok, _ := doublestar.Match(p.Pattern, path); ok {
		return true
	}
	ok, _ := doublestar.Match(p.Pattern+"/**", path)
	return ok
}
