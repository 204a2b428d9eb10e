package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCacheConfig(t *testing.T) {
	cfg := DefaultCacheConfig()
	assert.Equal(t, 30*24*time.Hour, cfg.SelectorTTL)
	assert.Equal(t, 10, cfg.MaxVariationsPerSelector)
	assert.Equal(t, 10, cfg.ReverseCandidateLimit)
	assert.Equal(t, 20, cfg.FuzzyCandidateLimit)
}

func TestDefaultBreakerConfig(t *testing.T) {
	cfg := DefaultBreakerConfig()
	assert.Equal(t, 0.5, cfg.FailureThreshold)
	assert.Equal(t, 5, cfg.MaxConsecutiveFailures)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultCacheConfig(), cfg.Cache)
	assert.Equal(t, DefaultScenarioConfig(), cfg.Scenario)
	assert.Equal(t, DefaultBreakerConfig(), cfg.Breaker)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origWD) })
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)

	cfg, err := Load(filepath.Join(root, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBreakerConfig(), cfg.Breaker)
	assert.Equal(t, filepath.Join(root, ".selectorcache", "cache.db"), cfg.CacheRoot)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "config.yaml")
	yamlBody := "cache_root: /custom/cache.db\nbreaker:\n  failure_threshold: 0.9\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/custom/cache.db", cfg.CacheRoot)
	assert.Equal(t, 0.9, cfg.Breaker.FailureThreshold)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultBreakerConfig().MaxConsecutiveFailures, cfg.Breaker.MaxConsecutiveFailures)
}

func TestFindWorkspaceRoot_PrefersSelectorcacheDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".selectorcache"), 0o755))
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	got, err := FindWorkspaceRoot()
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindWorkspaceRoot_FallsBackToGoMod(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n\ngo 1.22\n"), 0o644))
	nested := filepath.Join(root, "subdir")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	got, err := FindWorkspaceRoot()
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindWorkspaceRoot_FallsBackToCWD(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)

	got, err := FindWorkspaceRoot()
	require.NoError(t, err)
	assert.Equal(t, root, got)
}
