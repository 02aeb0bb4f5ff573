package emuera

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, configFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "SYSTEM_TITLE", cfg.Entry)
	require.Equal(t, 512, cfg.MaxCallDepth)
	require.Equal(t, 40, cfg.DrawLineWidth)
	require.False(t, cfg.Persist)
	require.Empty(t, cfg.Path)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
entry = "MAIN"
script-dir = "scripts"
save-dir = "/abs/sav"
persist = true
seed = 99

[trace]
exec = true

[log]
verbosity = 2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "MAIN", cfg.Entry)
	require.Equal(t, filepath.Join(dir, "scripts"), cfg.ScriptDir)
	require.Equal(t, "/abs/sav", cfg.SaveDir)
	require.True(t, cfg.Persist)
	require.Equal(t, int64(99), cfg.Seed)
	require.True(t, cfg.Trace.Exec)
	require.False(t, cfg.Trace.Vars)
	require.Equal(t, 2, cfg.Log.Verbosity)
	require.Equal(t, path, cfg.Path)

	// keys the file leaves out keep their defaults
	require.Equal(t, 512, cfg.MaxCallDepth)
	require.Equal(t, 40, cfg.DrawLineWidth)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := writeConfig(t, t.TempDir(), "entry = [")
	_, err = LoadConfig(path)
	require.ErrorContains(t, err, "parse error")

	path = writeConfig(t, t.TempDir(), "max-call-depth = 4\nbaseline-depth = 4\n")
	_, err = LoadConfig(path)
	require.ErrorContains(t, err, "baseline-depth")
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `entry = "FOUND"`)

	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	cfg, err := FindConfig(deep)
	require.NoError(t, err)
	require.Equal(t, "FOUND", cfg.Entry)
	require.Equal(t, filepath.Join(root, configFile), cfg.Path)
	require.Equal(t, filepath.Join(root, "ERB"), cfg.ScriptDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"entry", func(c *Config) { c.Entry = "" }, "entry"},
		{"depth", func(c *Config) { c.MaxCallDepth = 0 }, "max-call-depth"},
		{"baseline", func(c *Config) { c.BaselineDepth = -1 }, "baseline-depth"},
		{"drawline", func(c *Config) { c.DrawLineWidth = -1 }, "drawline-width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
