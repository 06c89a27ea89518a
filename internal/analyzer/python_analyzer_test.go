package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repomap/internal/tsparser"
)

func TestPythonAnalyzer_ClassMethodsPublicVisibility(t *testing.T) {
	src := []byte(`
class Worker:
    def __init__(self, name):
        self.name = name

    def _helper(self):
        return self.name

    def run(self):
        return self._helper()
`)
	a := NewPythonAnalyzer(tsparser.NewPool())
	fa := a.Analyze("worker.py", src)

	require.Empty(t, fa.ParseErrors)
	require.Len(t, fa.Structs, 1)
	require.Equal(t, "Worker", fa.Structs[0].Name)

	require.Len(t, fa.Functions, 3)
	byName := map[string]bool{}
	for _, fn := range fa.Functions {
		byName[fn.Name] = fn.IsPublic
		require.Equal(t, "Worker", fn.Receiver)
	}

	require.True(t, byName["__init__"])
	require.True(t, byName["run"])
	require.False(t, byName["_helper"])
}

func TestPythonAnalyzer_RegexFallbackDunderIsPublic(t *testing.T) {
	functions, structs, _ := regexPythonFallback([]byte(`
class Worker:
    def __init__(self, name):
        pass
    def _helper(self):
        pass
`))

	require.Len(t, structs, 1)
	require.True(t, structs[0].IsPublic)

	byName := map[string]bool{}
	for _, fn := range functions {
		byName[fn.Name] = fn.IsPublic
	}
	require.True(t, byName["__init__"])
	require.False(t, byName["_helper"])
}

func TestPythonAnalyzer_DeterministicOutput(t *testing.T) {
	src := []byte("def add(a, b):\n    return a + b\n")
	a := NewPythonAnalyzer(tsparser.NewPool())

	first := a.Analyze("add.py", src)
	second := a.Analyze("add.py", src)

	require.Equal(t, first.Functions, second.Functions)
	require.Equal(t, first.ContentHash, second.ContentHash)
}
