package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/blockpatch/pkg/patch"
)

func envMap(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "blockpatch.yaml")
	configContent := `log:
  level: debug
  file: /tmp/blockpatch.log
  format: console
output:
  color: never
  diff: true
apply:
  backup_suffix: .orig
batch:
  concurrency: 4
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := Load(configPath, envMap(nil))
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/tmp/blockpatch.log", cfg.Log.File)
	require.Equal(t, LogFormatConsole, cfg.Log.Format)
	require.Equal(t, ColorNever, cfg.Output.Color)
	require.True(t, cfg.Output.Diff)
	require.Equal(t, ".orig", cfg.Apply.BackupSuffix)
	require.Equal(t, 4, cfg.Batch.Concurrency)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "blockpatch.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: warn\n"), 0o644))

	cfg, err := Load(configPath, envMap(map[string]string{
		"BLOCKPATCH_LOG_LEVEL":     "error",
		"BLOCKPATCH_COLOR":         "ALWAYS",
		"BLOCKPATCH_BACKUP_SUFFIX": ".bak",
		"BLOCKPATCH_CONCURRENCY":   "2",
	}))
	require.NoError(t, err)
	require.Equal(t, "error", cfg.Log.Level)
	require.Equal(t, ColorAlways, cfg.Output.Color)
	require.Equal(t, ".bak", cfg.Apply.BackupSuffix)
	require.Equal(t, 2, cfg.Batch.Concurrency)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	badColor := filepath.Join(dir, "color.yaml")
	require.NoError(t, os.WriteFile(badColor, []byte("output:\n  color: rainbow\n"), 0o644))
	_, err := Load(badColor, envMap(nil))
	require.ErrorContains(t, err, "output.color")

	badYAML := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("log: [unterminated"), 0o644))
	_, err = Load(badYAML, envMap(nil))
	require.Error(t, err)

	_, err = Load(badColor, envMap(map[string]string{"BLOCKPATCH_COLOR": "never", "BLOCKPATCH_CONCURRENCY": "many"}))
	require.ErrorContains(t, err, "CONCURRENCY")
}

func TestDefaultValidates(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, ColorAuto, cfg.Output.Color)
	require.Equal(t, LogFormatJSON, cfg.Log.Format)
	require.Equal(t, patch.DefaultBatchConcurrency, cfg.Batch.Concurrency)

	cfg.Batch.Concurrency = 0
	require.NoError(t, cfg.Validate())
	require.Equal(t, patch.DefaultBatchConcurrency, cfg.Batch.Concurrency)
}

func TestLoadEnvFileMissingIsFine(t *testing.T) {
	t.Parallel()

	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}
