package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gpsearch/configs"
	"github.com/Aman-CERP/gpsearch/internal/config"
)

func TestConfigInit_WritesTemplate(t *testing.T) {
	// Given: no user config
	dir := setupEnv(t)

	// When: running config init
	out, err := runCmd(t, dir, "config", "init")

	// Then: the template is written to the user config path
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration")
	data, err := os.ReadFile(config.GetUserConfigPath())
	require.NoError(t, err)
	assert.Equal(t, configs.ConfigTemplate, string(data))
}

func TestConfigInit_TemplateIsValid(t *testing.T) {
	// Given: the written template
	dir := setupEnv(t)
	_, err := runCmd(t, dir, "config", "init")
	require.NoError(t, err)

	// When: loading it
	cfg, err := config.LoadFile(config.GetUserConfigPath())

	// Then: it decodes to a valid configuration
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestConfigInit_ExistingWithoutForce(t *testing.T) {
	dir := setupEnv(t)
	_, err := runCmd(t, dir, "config", "init")
	require.NoError(t, err)

	out, err := runCmd(t, dir, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	assert.Contains(t, out, "--force")
}

func TestConfigInit_ForceBacksUpAndKeepsSettings(t *testing.T) {
	// Given: a user config with a custom index name
	dir := setupEnv(t)
	path := config.GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("index:\n  name: custom\n"), 0600))

	// When: upgrading with --force
	out, err := runCmd(t, dir, "config", "init", "--force")

	// Then: a backup exists and the setting survives next to new defaults
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration upgraded")
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Index.Name)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "spellcheck_distance")
}

func TestConfigInit_Project(t *testing.T) {
	dir := setupEnv(t)

	_, err := runCmd(t, dir, "config", "init", "--project")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ".gpsearch.yaml"))
	assert.False(t, config.UserConfigExists())
}

func TestConfigShow_MergedJSONIsRedacted(t *testing.T) {
	// Given: secrets in the environment
	dir := setupEnv(t)
	t.Setenv("GPSEARCH_REDIS_PASSWORD", "hunter2")
	t.Setenv("GPSEARCH_SOURCE_TYPE", "postgres")
	t.Setenv("GPSEARCH_SOURCE_DSN", "postgres://frappe:hunter2@db:5432/site")

	// When: showing the merged config as JSON
	out, err := runCmd(t, dir, "config", "show", "--json")

	// Then: values are merged and secrets masked
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "memory", cfg.Backend.Type)
	assert.Equal(t, "postgres", cfg.Source.Type)
	assert.True(t, strings.HasPrefix(cfg.Source.DSN, "postgres://frappe:"))
}

func TestConfigShow_Sources(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gpsearch.yaml"), []byte("index:\n  prefix: proj_doc\n"), 0600))

	tests := []struct {
		source string
		want   string
	}{
		{"defaults", "defaults (hardcoded)"},
		{"merged", "proj_doc"},
		{"project", "project ("},
		{"user", "No user configuration file found"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			out, err := runCmd(t, dir, "config", "show", "--source", tt.source)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestConfigShow_InvalidSource(t *testing.T) {
	dir := setupEnv(t)

	_, err := runCmd(t, dir, "config", "show", "--source", "remote")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source")
}

func TestConfigPath(t *testing.T) {
	dir := setupEnv(t)

	out, err := runCmd(t, dir, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, config.GetUserConfigPath(), strings.TrimSpace(out))
}
