// Package lcidebug is a minimal, dependency-free diagnostic logger gated by
// the REPOMAP_DEBUG environment variable, following the teacher's
// internal/debug package: no logging framework, just a guarded stderr
// writer used from the parser and scanner hot paths.
package lcidebug

import (
	"fmt"
	"os"
	"sync"
)

var (
	once    sync.Once
	enabled bool
)

func isEnabled() bool {
	once.Do(func() {
		v := os.Getenv("REPOMAP_DEBUG")
		enabled = v != "" && v != "0"
	})
	return enabled
}

// Log writes a formatted diagnostic line to stderr when REPOMAP_DEBUG is set.
// It never allocates or formats when disabled.
func Log(format string, args ...any) {
	if !isEnabled() {
		return
	}
	fmt.Fprintf(os.Stderr, "[repomap] "+format+"\n", args...)
}

// LogParsePanic records a recovered parser panic. Kept as a distinct
// function (rather than a Log call at every call site) so panic recovery
// sites read uniformly, mirroring debug.LogIndexing's dedicated call sites
// in the teacher's parser package.
func LogParsePanic(path string, recovered any) {
	Log("panic recovered while parsing %s: %v", path, recovered)
}
