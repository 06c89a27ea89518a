package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadKDL_MissingFileLeavesDefaultsUntouched(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Languages = []string{"go"}
	before := *cfg

	require.NoError(t, LoadKDL(cfg.Root, cfg))
	require.Equal(t, before, *cfg)
}

func TestLoadKDL_OverridesFieldsFromFile(t *testing.T) {
	dir := t.TempDir()
	kdlSrc := `languages "go" "python"
max_files 500
max_file_size "2MB"
max_depth 3
follow_symlinks #true
respect_gitignore #false
exclude "**/vendor/**"
cache_ttl 120
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".repomap.kdl"), []byte(kdlSrc), 0o644))

	cfg := Default(dir)
	require.NoError(t, LoadKDL(dir, cfg))

	require.Equal(t, []string{"go", "python"}, cfg.Languages)
	require.Equal(t, 500, cfg.MaxFiles)
	require.Equal(t, int64(2*1024*1024), cfg.MaxFileSize)
	require.Equal(t, 3, cfg.MaxDepth)
	require.True(t, cfg.FollowSymlinks)
	require.False(t, cfg.RespectGitignore)
	require.Equal(t, []string{"**/vendor/**"}, cfg.ExcludePatterns)
	require.Equal(t, 120*time.Second, cfg.CacheTTL)
}

func TestParseSize_UnitSuffixes(t *testing.T) {
	cases := map[string]int64{
		"10B":  10,
		"5KB":  5 * 1024,
		"2MB":  2 * 1024 * 1024,
		"1GB":  1024 * 1024 * 1024,
		"1024": 1024,
	}
	for input, want := range cases {
		got, err := parseSize(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}
}
