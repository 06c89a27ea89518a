package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_PassesValidateOnceLanguagesAreSet(t *testing.T) {
	cfg := Default("/repo")
	cfg.Languages = []string{"go"}
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsEmptyRoot(t *testing.T) {
	cfg := Default("")
	cfg.Languages = []string{"go"}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveMaxFiles(t *testing.T) {
	cfg := Default("/repo")
	cfg.Languages = []string{"go"}
	cfg.MaxFiles = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeMaxDepth(t *testing.T) {
	cfg := Default("/repo")
	cfg.Languages = []string{"go"}
	cfg.MaxDepth = -1
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsEmptyLanguages(t *testing.T) {
	cfg := Default("/repo")
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeCacheTTL(t *testing.T) {
	cfg := Default("/repo")
	cfg.Languages = []string{"go"}
	cfg.CacheTTL = -1
	require.Error(t, cfg.Validate())
}
