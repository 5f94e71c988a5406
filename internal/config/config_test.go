package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Limits.MaxInputLength)
	assert.Equal(t, 10, cfg.Limits.MaxOutputRecords)
	assert.Equal(t, 0.3, cfg.Injection.FlagThreshold)
	assert.Equal(t, 0.5, cfg.Injection.BlockThreshold)
	assert.Equal(t, 10, cfg.Identity.MinUserIDLength)
}

func TestParse_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
limits:
  max_input_length: 300
injection:
  block_threshold: 0.6
audit:
  sink: both
`))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Limits.MaxInputLength)
	assert.Equal(t, 10, cfg.Limits.MaxOutputRecords)
	assert.Equal(t, 0.6, cfg.Injection.BlockThreshold)
	assert.Equal(t, 0.3, cfg.Injection.FlagThreshold)
	assert.Equal(t, SinkBoth, cfg.Audit.Sink)
	assert.Equal(t, 1024, cfg.Audit.QueueSize)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative length", "limits: {max_input_length: -1}"},
		{"threshold above one", "injection: {block_threshold: 1.5}"},
		{"flag above block", "injection: {flag_threshold: 0.6, block_threshold: 0.4}"},
		{"unknown sink", "audit: {sink: syslog}"},
		{"inverted denial counts", "risk: {low_denial_count: 5, high_denial_count: 2}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Parse([]byte("limits: [not, a, map]"))
	assert.Error(t, err)
}

func TestLoad_DefaultsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvLog, "")
	t.Setenv(EnvPacks, "")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	dir := filepath.Join(home, DefaultConfigDir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, filepath.Join(dir, DefaultConfigFile), cfg.ConfigPath)
	assert.Equal(t, filepath.Join(dir, DefaultLogFile), cfg.Audit.Path)
	assert.Equal(t, filepath.Join(dir, DefaultPacksDir), cfg.Patterns.PacksDir)
}

func TestLoad_Precedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfgPath := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
audit:
  path: /from/file.jsonl
patterns:
  packs_dir: /from/file/packs
`), 0600))

	t.Setenv(EnvConfig, cfgPath)
	t.Setenv(EnvLog, "/from/env.jsonl")
	t.Setenv(EnvPacks, "")

	cfg, err := Load(Overrides{PacksDir: "/from/flag/packs"})
	require.NoError(t, err)
	assert.Equal(t, cfgPath, cfg.ConfigPath)
	assert.Equal(t, "/from/env.jsonl", cfg.Audit.Path)
	assert.Equal(t, "/from/flag/packs", cfg.Patterns.PacksDir)

	t.Setenv(EnvLog, "")
	cfg, err = Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "/from/file.jsonl", cfg.Audit.Path)
	assert.Equal(t, "/from/file/packs", cfg.Patterns.PacksDir)
}

func TestLoadFile_BadFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits: {max_output_records: -3}"), 0600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
