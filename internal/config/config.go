package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dnv-opensource/WindFarmer-automation/internal/atmos"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/request"
	"github.com/dnv-opensource/WindFarmer-automation/internal/windfarmer"
)

const DefaultAccessKeyEnv = "WINDFARMER_ACCESS_KEY"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load model settings from a separate YAML (e.g. configs/models/*.yaml).
	// If both ModelsFile and Models are provided, Models overrides ModelsFile field by field.
	ModelsFile string           `yaml:"models_file"`
	Models     ModelsConfig     `yaml:"models"`
	API        APIConfig        `yaml:"api"`
	Polling    PollingConfig    `yaml:"polling"`
	Batch      BatchConfig      `yaml:"batch"`
	Atmosphere AtmosphereConfig `yaml:"atmosphere"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// AccessKeyEnv names the environment variable holding the bearer token; the token itself
	// never lives in the file.
	AccessKeyEnv     string        `yaml:"access_key_env"`
	Timeout          time.Duration `yaml:"timeout"`
	SyncTurbineLimit int           `yaml:"sync_turbine_limit"`
	// CacheTTL keeps finished results in memory for repeated payloads; 0 disables it.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type ModelsConfig struct {
	WakeModel             string `yaml:"wake_model"`
	BlockageModel         string `yaml:"blockage_model"`
	ApplicationMethod     string `yaml:"application_method"`
	CalculateEfficiencies *bool  `yaml:"calculate_efficiencies"`
	DirectionSectors      int    `yaml:"direction_sectors"`
	CFDMLVersion          string `yaml:"cfdml_version"`
	GNNType               string `yaml:"gnn_type"`
}

type PollingConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	Jitter       time.Duration `yaml:"jitter"`
	// MaxDuration of 0 polls until the job finishes.
	MaxDuration  time.Duration `yaml:"max_duration"`
	Retries      int           `yaml:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type BatchConfig struct {
	InputDir    string `yaml:"input_dir"`
	OutputDir   string `yaml:"output_dir"`
	Concurrency int    `yaml:"concurrency"`
}

type AtmosphereConfig struct {
	PresetsFile       string `yaml:"presets_file"`
	StableWeightsFile string `yaml:"stable_weights_file"`
	SinglePreset      string `yaml:"single_preset"`
	StableClass       string `yaml:"stable_class"`
	UnstableClass     string `yaml:"unstable_class"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	// KeepEvents bounds the stored log events; older ones are purged when the server starts.
	KeepEvents int `yaml:"keep_events"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a config that only lacks the access key.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it or fill defaults.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.ModelsFile != "" {
		loaded, err := loadModelsFile(resolve(path, c.ModelsFile))
		if err != nil {
			return nil, err
		}
		c.Models = MergeModels(loaded, c.Models)
	}
	base := filepath.Dir(path)
	c.Atmosphere.PresetsFile = resolveFrom(base, c.Atmosphere.PresetsFile)
	c.Atmosphere.StableWeightsFile = resolveFrom(base, c.Atmosphere.StableWeightsFile)
	return &c, nil
}

// resolve interprets a relative path as relative to the config file directory,
// falling back to the provided path (relative to cwd) if that doesn't exist.
func resolve(configPath, p string) string {
	return resolveFrom(filepath.Dir(configPath), p)
}

func resolveFrom(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = windfarmer.DefaultBaseURL
	}
	if c.API.AccessKeyEnv == "" {
		c.API.AccessKeyEnv = DefaultAccessKeyEnv
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Minute
	}

	if c.Models.WakeModel == "" {
		c.Models.WakeModel = string(model.WakeEddyViscosity)
	}
	if c.Models.BlockageModel == "" {
		c.Models.BlockageModel = string(model.BlockageBEET)
	}
	if c.Models.ApplicationMethod == "" {
		c.Models.ApplicationMethod = string(model.OnWindSpeed)
	}
	if c.Models.CalculateEfficiencies == nil {
		t := true
		c.Models.CalculateEfficiencies = &t
	}
	if c.Models.CFDMLVersion == "" {
		c.Models.CFDMLVersion = request.DefaultCFDMLVersion
	}
	if c.Models.GNNType == "" {
		c.Models.GNNType = request.DefaultGNNType
	}

	def := windfarmer.DefaultPollPolicy()
	if c.Polling.InitialDelay == 0 {
		c.Polling.InitialDelay = def.InitialDelay
	}
	if c.Polling.Jitter == 0 {
		c.Polling.Jitter = def.Jitter
	}
	if c.Polling.Retries == 0 {
		c.Polling.Retries = 1
	}
	if c.Polling.RetryBackoff == 0 {
		c.Polling.RetryBackoff = 2 * time.Second
	}

	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = 4
	}
	if c.Batch.OutputDir == "" {
		c.Batch.OutputDir = "results"
	}
	if c.Atmosphere.StableClass == "" {
		c.Atmosphere.StableClass = "stable"
	}
	if c.Atmosphere.UnstableClass == "" {
		c.Atmosphere.UnstableClass = "unstable"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Database.Path == "" {
		c.Database.Path = "windfarmer.db"
	}
	if c.Database.KeepEvents == 0 {
		c.Database.KeepEvents = 10000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if _, err := c.ContextSpec().Context(); err != nil {
		return fmt.Errorf("models config invalid: %w", err)
	}
	if c.Models.WakeModel == string(model.WakeNone) {
		return fmt.Errorf("models config invalid: %w",
			model.NewConfigurationError("wake_model", "NoWakeModel is only used for blockage-only runs"))
	}
	if c.Models.DirectionSectors < 0 {
		return errors.New("models.direction_sectors must be >= 0")
	}
	if c.Polling.InitialDelay < 0 || c.Polling.Jitter < 0 || c.Polling.MaxDuration < 0 {
		return errors.New("polling durations must be >= 0")
	}
	if c.Polling.Retries < 1 {
		return errors.New("polling.retries must be >= 1")
	}
	if c.Batch.Concurrency < 1 {
		return errors.New("batch.concurrency must be >= 1")
	}
	if c.API.SyncTurbineLimit < 0 {
		return errors.New("api.sync_turbine_limit must be >= 0")
	}
	if c.Database.KeepEvents < 0 {
		return errors.New("database.keep_events must be >= 0")
	}
	if c.API.CacheTTL < 0 {
		return errors.New("api.cache_ttl must be >= 0")
	}
	return nil
}

// AccessKey reads the bearer token from the configured environment variable.
func (c *Config) AccessKey() (string, error) {
	key := os.Getenv(c.API.AccessKeyEnv)
	if key == "" {
		return "", model.NewConfigurationError("api.access_key_env", fmt.Sprintf("environment variable %s is not set", c.API.AccessKeyEnv))
	}
	return key, nil
}

func (c *Config) ContextSpec() model.ContextSpec {
	effs := c.Models.CalculateEfficiencies != nil && *c.Models.CalculateEfficiencies
	return model.ContextSpec{
		WakeModel:             model.WakeModel(c.Models.WakeModel),
		BlockageModel:         model.BlockageModel(c.Models.BlockageModel),
		ApplicationMethod:     model.ApplicationMethod(c.Models.ApplicationMethod),
		CalculateEfficiencies: effs,
	}
}

func (m ModelsConfig) ToSelection() request.ModelSelection {
	return request.ModelSelection{
		Wake:                  model.WakeModel(m.WakeModel),
		Blockage:              model.BlockageModel(m.BlockageModel),
		Method:                model.ApplicationMethod(m.ApplicationMethod),
		CalculateEfficiencies: m.CalculateEfficiencies != nil && *m.CalculateEfficiencies,
		DirectionSectors:      m.DirectionSectors,
		CFDMLVersion:          m.CFDMLVersion,
		GNNType:               m.GNNType,
	}
}

func (p PollingConfig) ToPolicy() windfarmer.PollPolicy {
	return windfarmer.PollPolicy{
		InitialDelay: p.InitialDelay,
		Jitter:       p.Jitter,
		MaxDuration:  p.MaxDuration,
	}
}

func (a AtmosphereConfig) Enabled() bool {
	return a.PresetsFile != ""
}

func (a AtmosphereConfig) Source() atmos.DistributionSource {
	return atmos.DistributionSource{
		SinglePreset:  a.SinglePreset,
		WeightsPath:   a.StableWeightsFile,
		StableClass:   a.StableClass,
		UnstableClass: a.UnstableClass,
	}
}

type modelsFileWrapper struct {
	Models ModelsConfig `yaml:"models"`
}

func loadModelsFile(path string) (ModelsConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ModelsConfig{}, err
	}
	var w modelsFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return ModelsConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return w.Models, nil
}

// MergeModels overlays non-zero fields from override onto base.
// This is used when loading a models file and then applying overrides from the main config or flags.
func MergeModels(base, override ModelsConfig) ModelsConfig {
	out := base
	if override.WakeModel != "" {
		out.WakeModel = override.WakeModel
	}
	if override.BlockageModel != "" {
		out.BlockageModel = override.BlockageModel
	}
	if override.ApplicationMethod != "" {
		out.ApplicationMethod = override.ApplicationMethod
	}
	if override.CalculateEfficiencies != nil {
		v := *override.CalculateEfficiencies
		out.CalculateEfficiencies = &v
	}
	if override.DirectionSectors != 0 {
		out.DirectionSectors = override.DirectionSectors
	}
	if override.CFDMLVersion != "" {
		out.CFDMLVersion = override.CFDMLVersion
	}
	if override.GNNType != "" {
		out.GNNType = override.GNNType
	}
	return out
}
