package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repomap/internal/tsparser"
)

func TestJSAnalyzer_ExportedAsyncFunctionAndClass(t *testing.T) {
	src := []byte(`
export async function fetchUser(id) {
    return db.get(id)
}

class Session {
    #token

    renew() {
        return fetchUser(this.id)
    }
}
`)
	a := NewJSAnalyzer(tsparser.NewPool())
	fa := a.Analyze("session.js", src)

	require.Empty(t, fa.ParseErrors)
	require.Equal(t, "javascript", fa.Language)

	var sawFetch, sawRenew bool
	for _, fn := range fa.Functions {
		switch fn.Name {
		case "fetchUser":
			sawFetch = true
			require.True(t, fn.IsPublic)
			require.True(t, fn.IsAsync)
			require.Equal(t, "", fn.Receiver)
		case "renew":
			sawRenew = true
			require.True(t, fn.IsPublic)
			require.Equal(t, "Session", fn.Receiver)
		}
	}
	require.True(t, sawFetch)
	require.True(t, sawRenew)

	require.Len(t, fa.Structs, 1)
	require.Equal(t, "Session", fa.Structs[0].Name)
	require.Len(t, fa.Structs[0].Fields, 1)
	require.Equal(t, "#token", fa.Structs[0].Fields[0].Name)
	require.False(t, fa.Structs[0].Fields[0].IsPublic)
}

func TestJSAnalyzer_TypeScriptExtensionUsesTypeScriptGrammar(t *testing.T) {
	src := []byte(`export function add(a: number, b: number): number {
    return a + b
}
`)
	a := NewJSAnalyzer(tsparser.NewPool())
	fa := a.Analyze("add.ts", src)

	require.Equal(t, "typescript", fa.Language)
	require.Len(t, fa.Functions, 1)
	require.Equal(t, "add", fa.Functions[0].Name)
	require.Equal(t, "number", fa.Functions[0].ReturnType)
}

func TestJSAnalyzer_RegexFallbackExportedArrowFunction(t *testing.T) {
	functions, structs, imports := regexJSFallback([]byte(`
import fs from 'fs'

export const handler = async (event) => {
    return fs.readFileSync(event.path)
`))

	require.Len(t, imports, 1)
	require.Equal(t, "fs", imports[0].Module)

	require.Len(t, functions, 1)
	require.Equal(t, "handler", functions[0].Name)
	require.True(t, functions[0].IsPublic)
	require.True(t, functions[0].IsAsync)

	require.Empty(t, structs)
}

func TestJSAnalyzer_DeterministicOutput(t *testing.T) {
	src := []byte("export function add(a, b) { return a + b }")
	a := NewJSAnalyzer(tsparser.NewPool())

	first := a.Analyze("add.js", src)
	second := a.Analyze("add.js", src)

	require.Equal(t, first.Functions, second.Functions)
	require.Equal(t, first.ContentHash, second.ContentHash)
}
