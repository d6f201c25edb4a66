package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/windfarmer"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "batch:\n  input_dir: scenarios\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, windfarmer.DefaultBaseURL, c.API.BaseURL)
	assert.Equal(t, DefaultAccessKeyEnv, c.API.AccessKeyEnv)
	assert.Equal(t, "EddyViscosity", c.Models.WakeModel)
	assert.Equal(t, "OnWindSpeed", c.Models.ApplicationMethod)
	require.NotNil(t, c.Models.CalculateEfficiencies)
	assert.True(t, *c.Models.CalculateEfficiencies)
	assert.Equal(t, 5*time.Second, c.Polling.InitialDelay)
	assert.Equal(t, windfarmer.Unbounded, c.Polling.MaxDuration)
	assert.Equal(t, 4, c.Batch.Concurrency)
	assert.Equal(t, "scenarios", c.Batch.InputDir)
	assert.Equal(t, 10000, c.Database.KeepEvents)
	assert.Equal(t, time.Duration(0), c.API.CacheTTL)
}

func TestLoad_Durations(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
polling:
  initial_delay: 2s
  jitter: 500ms
  max_duration: 2h
api:
  sync_turbine_limit: 25
  cache_ttl: 30m
`)
	c, err := Load(path)
	require.NoError(t, err)
	p := c.Polling.ToPolicy()
	assert.Equal(t, 2*time.Second, p.InitialDelay)
	assert.Equal(t, 500*time.Millisecond, p.Jitter)
	assert.Equal(t, 2*time.Hour, p.MaxDuration)
	assert.Equal(t, 25, c.API.SyncTurbineLimit)
	assert.Equal(t, 30*time.Minute, c.API.CacheTTL)
}

func TestLoad_ModelsFileMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "models/cfdml.yaml", `
models:
  wake_model: CFDML
  blockage_model: CFDML
  application_method: OnEnergy
  calculate_efficiencies: true
  gnn_type: Onshore
`)
	path := writeFile(t, dir, "config.yaml", `
models_file: models/cfdml.yaml
models:
  application_method: OnWindSpeed
  calculate_efficiencies: false
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "CFDML", c.Models.WakeModel)
	assert.Equal(t, "OnWindSpeed", c.Models.ApplicationMethod)
	assert.False(t, *c.Models.CalculateEfficiencies)
	assert.Equal(t, "Onshore", c.Models.GNNType)

	ctx, err := c.ContextSpec().Context()
	require.NoError(t, err)
	assert.Equal(t, model.WakeCFDML, ctx.WakeModel())
	assert.False(t, ctx.CalculateEfficiencies())

	sel := c.Models.ToSelection()
	assert.Equal(t, model.BlockageCFDML, sel.Blockage)
	assert.Equal(t, "2.6.0", sel.CFDMLVersion)
}

func TestLoad_ResolvesAtmosphereFiles(t *testing.T) {
	dir := t.TempDir()
	presets := writeFile(t, dir, "atmos/presets.yaml", "neutral: {}\n")
	path := writeFile(t, dir, "config.yaml", "atmosphere:\n  presets_file: atmos/presets.yaml\n")

	c, err := LoadUnchecked(path)
	require.NoError(t, err)
	assert.Equal(t, presets, c.Atmosphere.PresetsFile)
	assert.True(t, c.Atmosphere.Enabled())
	assert.Equal(t, "", c.Atmosphere.Source().SinglePreset)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown wake model", func(c *Config) { c.Models.WakeModel = "Jensen" }},
		{"no wake model", func(c *Config) { c.Models.WakeModel = "NoWakeModel" }},
		{"unknown method", func(c *Config) { c.Models.ApplicationMethod = "Sometimes" }},
		{"negative jitter", func(c *Config) { c.Polling.Jitter = -time.Second }},
		{"zero concurrency", func(c *Config) { c.Batch.Concurrency = 0 }},
		{"negative sync limit", func(c *Config) { c.API.SyncTurbineLimit = -1 }},
		{"negative event retention", func(c *Config) { c.Database.KeepEvents = -1 }},
		{"negative cache ttl", func(c *Config) { c.API.CacheTTL = -time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			require.NoError(t, c.Validate())
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestAccessKey(t *testing.T) {
	c := Default()
	c.API.AccessKeyEnv = "WINDFARMER_TEST_KEY"

	t.Setenv("WINDFARMER_TEST_KEY", "")
	_, err := c.AccessKey()
	assert.ErrorIs(t, err, model.ErrConfiguration)

	t.Setenv("WINDFARMER_TEST_KEY", "token")
	key, err := c.AccessKey()
	require.NoError(t, err)
	assert.Equal(t, "token", key)
}

func TestMergeModels(t *testing.T) {
	f := false
	base := ModelsConfig{WakeModel: "TurbOPark", BlockageModel: "BEET", DirectionSectors: 72}
	out := MergeModels(base, ModelsConfig{BlockageModel: "CFDML", CalculateEfficiencies: &f})
	assert.Equal(t, "TurbOPark", out.WakeModel)
	assert.Equal(t, "CFDML", out.BlockageModel)
	assert.Equal(t, 72, out.DirectionSectors)
	require.NotNil(t, out.CalculateEfficiencies)
	assert.False(t, *out.CalculateEfficiencies)
}
