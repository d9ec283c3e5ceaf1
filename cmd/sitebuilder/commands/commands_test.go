package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func TestParseLogLevel(t *testing.T) {
	t.Setenv("SITEBUILDER_LOG_LEVEL", "warn")
	require.Equal(t, slog.LevelWarn, parseLogLevel(false))
	require.Equal(t, slog.LevelDebug, parseLogLevel(true))

	t.Setenv("SITEBUILDER_LOG_LEVEL", "")
	require.Equal(t, slog.LevelInfo, parseLogLevel(false))
}

func TestRunInit_ScaffoldsBuildableSite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	require.NoError(t, RunInit(dir, "https://example.org", "Scaffold", false))

	cfg, err := config.Load(dir, "", config.ModeBuild)
	require.NoError(t, err)
	require.Equal(t, "https://example.org", cfg.BaseURL)
	require.Equal(t, "Scaffold", cfg.Title)

	report, err := RunBuild(context.Background(), cfg, false)
	require.NoError(t, err)
	require.Equal(t, 1, report.Sections)

	index, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(index), "Welcome to Scaffold.")
}

func TestRunInit_RefusesNonEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o600))

	err := RunInit(dir, "https://example.org", "Scaffold", false)
	require.Error(t, err)
	require.True(t, foundation.HasCategory(err, foundation.CategoryValidation))

	require.NoError(t, RunInit(dir, "https://example.org", "Scaffold", true))
}

func TestBuildCmd_AppliesOverrides(t *testing.T) {
	cfg := &config.Config{BaseURL: "https://example.com", Paths: config.DefaultPaths("/site")}
	(&BuildCmd{BaseURL: "https://staging.example.com", Output: "dist"}).apply(cfg)
	require.Equal(t, "https://staging.example.com", cfg.BaseURL)
	require.Equal(t, filepath.Join("/site", "dist"), cfg.Paths.Output)
}
