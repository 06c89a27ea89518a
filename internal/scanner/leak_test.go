package scanner

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures the errgroup worker pool and record-drain goroutine Scan
// spawns never outlive a call, since scans run repeatedly for the lifetime
// of a long-running MCP server.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
