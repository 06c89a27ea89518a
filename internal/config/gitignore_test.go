package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGitignoreParser_SimplePatternIgnoresAtAnyDepth(t *testing.T) {
	gp := NewGitignoreParser()
	gp.AddPattern("*.log")

	require.True(t, gp.ShouldIgnore("debug.log", false))
	require.True(t, gp.ShouldIgnore("nested/dir/debug.log", false))
	require.False(t, gp.ShouldIgnore("debug.txt", false))
}

func TestGitignoreParser_DirectoryOnlyPatternIgnoresContents(t *testing.T) {
	gp := NewGitignoreParser()
	gp.AddPattern("target/")

	require.True(t, gp.ShouldIgnore("target/debug/build.o", false))
	require.True(t, gp.ShouldIgnore("target", true))
}

func TestGitignoreParser_AbsolutePatternAnchorsAtRoot(t *testing.T) {
	gp := NewGitignoreParser()
	gp.AddPattern("/only_at_root.txt")

	require.True(t, gp.ShouldIgnore("only_at_root.txt", false))
	require.False(t, gp.ShouldIgnore("nested/only_at_root.txt", false))
}

func TestGitignoreParser_NegationReenablesLaterMatch(t *testing.T) {
	gp := NewGitignoreParser()
	gp.AddPattern("*.log")
	gp.AddPattern("!keep.log")

	require.True(t, gp.ShouldIgnore("debug.log", false))
	require.False(t, gp.ShouldIgnore("keep.log", false))
}

func TestGitignoreParser_LoadMissingFileIsNotAnError(t *testing.T) {
	gp := NewGitignoreParser()
	require.NoError(t, gp.LoadGitignore(t.TempDir()))
}
