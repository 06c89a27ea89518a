package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repomap/internal/tsparser"
)

func TestRustAnalyzer_SingleAsyncFunction(t *testing.T) {
	src := []byte(`
pub async fn fetch(url: &str) -> Result<String> {
    do_request(url)
}
`)
	a := NewRustAnalyzer(tsparser.NewPool())
	fa := a.Analyze("fetch.rs", src)

	require.Empty(t, fa.ParseErrors)
	require.Len(t, fa.Functions, 1)

	fn := fa.Functions[0]
	require.Equal(t, "fetch", fn.Name)
	require.True(t, fn.IsPublic)
	require.True(t, fn.IsAsync)
	require.Len(t, fn.Params, 1)
	require.Equal(t, "url", fn.Params[0].Name)
	require.Equal(t, "&str", fn.Params[0].Type)
	require.Equal(t, "Result<String>", fn.ReturnType)
}

func TestRustAnalyzer_RegexFallbackSurfacesWellFormedHeaders(t *testing.T) {
	// The parameter list is missing its closing parenthesis and the body
	// its closing brace. The fallback regex only needs the `pub fn name`
	// start of a header line, so it should still surface "broken" even
	// though the file cannot balance its delimiters.
	src := []byte(`
pub fn broken(x: i32 -> i32 {
    x
`)
	functions, _, _ := regexRustFallback(src)

	require.Len(t, functions, 1)
	require.Equal(t, "broken", functions[0].Name)
	require.True(t, functions[0].IsPublic)
}

func TestRustAnalyzer_DeterministicOutput(t *testing.T) {
	src := []byte(`pub fn add(a: i32, b: i32) -> i32 { a + b }`)
	a := NewRustAnalyzer(tsparser.NewPool())

	first := a.Analyze("add.rs", src)
	second := a.Analyze("add.rs", src)

	require.Equal(t, first.Functions, second.Functions)
	require.Equal(t, first.ContentHash, second.ContentHash)
}
