package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dnv-opensource/WindFarmer-automation/internal/config"
	"github.com/dnv-opensource/WindFarmer-automation/internal/logging"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
	"github.com/dnv-opensource/WindFarmer-automation/internal/windfarmer"
)

var rootCmd = &cobra.Command{
	Use:   "windfarmer",
	Short: "Run WindFarmer AEP calculations and decompose their losses",
	Long: `windfarmer submits annual energy production calculations to the WindFarmer web API,
polls them to completion and breaks the resulting yields down into wake and blockage
efficiencies.

Settings come from a YAML config file, overridden by flags and WINDFARMER_* environment
variables (for example WINDFARMER_MODELS_WAKE_MODEL). The bearer token is read from the
variable named by api.access_key_env, WINDFARMER_ACCESS_KEY unless configured otherwise.`,
	SilenceUsage: true,
}

// overrides lists the config keys that flags and environment variables may set.
var overrides = []string{
	"api.base_url",
	"api.sync_turbine_limit",
	"api.cache_ttl",
	"models.wake_model",
	"models.blockage_model",
	"models.application_method",
	"models.calculate_efficiencies",
	"models.direction_sectors",
	"polling.max_duration",
	"batch.output_dir",
	"batch.concurrency",
	"database.path",
	"log.level",
}

func init() {
	cobra.OnInitialize(initViper)

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "config file (YAML)")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("base-url", "", "WindFarmer API base URL")
	pf.String("wake-model", "", "EddyViscosity, ModifiedPark, TurbOPark or CFDML")
	pf.String("blockage-model", "", "BEET or CFDML")
	pf.String("application-method", "", "OnEnergy or OnWindSpeed")
	pf.Duration("max-duration", 0, "give up polling a job after this long (0 = never)")
	pf.String("db", "", "sqlite ledger path")

	_ = viper.BindPFlag("config", pf.Lookup("config"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("api.base_url", pf.Lookup("base-url"))
	_ = viper.BindPFlag("models.wake_model", pf.Lookup("wake-model"))
	_ = viper.BindPFlag("models.blockage_model", pf.Lookup("blockage-model"))
	_ = viper.BindPFlag("models.application_method", pf.Lookup("application-method"))
	_ = viper.BindPFlag("polling.max_duration", pf.Lookup("max-duration"))
	_ = viper.BindPFlag("database.path", pf.Lookup("db"))
}

func initViper() {
	viper.SetEnvPrefix("WINDFARMER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range append([]string{"config"}, overrides...) {
		_ = viper.BindEnv(key)
	}
}

// loadConfig reads the config file (if any) and applies flag and environment overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if path := viper.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	applyOverrides(cfg, viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies values that were explicitly set through flags or the environment.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	set := func(key string) bool {
		if !v.IsSet(key) {
			return false
		}
		// unset flags report their zero default
		switch val := v.Get(key).(type) {
		case string:
			return val != ""
		case time.Duration:
			return val != 0
		}
		return true
	}
	if set("api.base_url") {
		cfg.API.BaseURL = v.GetString("api.base_url")
	}
	if set("api.sync_turbine_limit") {
		cfg.API.SyncTurbineLimit = v.GetInt("api.sync_turbine_limit")
	}
	if set("api.cache_ttl") {
		cfg.API.CacheTTL = v.GetDuration("api.cache_ttl")
	}
	if set("models.wake_model") {
		cfg.Models.WakeModel = v.GetString("models.wake_model")
	}
	if set("models.blockage_model") {
		cfg.Models.BlockageModel = v.GetString("models.blockage_model")
	}
	if set("models.application_method") {
		cfg.Models.ApplicationMethod = v.GetString("models.application_method")
	}
	if set("models.calculate_efficiencies") {
		b := v.GetBool("models.calculate_efficiencies")
		cfg.Models.CalculateEfficiencies = &b
	}
	if set("models.direction_sectors") {
		cfg.Models.DirectionSectors = v.GetInt("models.direction_sectors")
	}
	if set("polling.max_duration") {
		cfg.Polling.MaxDuration = v.GetDuration("polling.max_duration")
	}
	if set("batch.output_dir") {
		cfg.Batch.OutputDir = v.GetString("batch.output_dir")
	}
	if set("batch.concurrency") {
		cfg.Batch.Concurrency = v.GetInt("batch.concurrency")
	}
	if set("database.path") {
		cfg.Database.Path = v.GetString("database.path")
	}
	if set("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
}

// newLogger builds the console logger and, when st is given, mirrors warnings into the ledger.
func newLogger(cfg *config.Config, st *store.Store) *slog.Logger {
	level := logging.LevelFromString(&cfg.Log.Level)
	console := logging.NewConsoleHandler(os.Stderr, level, false)
	if st == nil {
		return slog.New(console)
	}
	return slog.New(logging.NewMultiHandler(console, logging.NewEventHandler(st, slog.LevelWarn)))
}

func newClient(cfg *config.Config, logger *slog.Logger) (*windfarmer.Client, error) {
	key, err := cfg.AccessKey()
	if err != nil {
		return nil, err
	}
	return windfarmer.New(windfarmer.Options{
		BaseURL:          cfg.API.BaseURL,
		AccessKey:        key,
		Logger:           logger,
		Poll:             cfg.Polling.ToPolicy(),
		SyncTurbineLimit: cfg.API.SyncTurbineLimit,
		HTTPClient:       windfarmer.NewHTTPClient(cfg.API.Timeout),
		Cache:            windfarmer.NewResultCache(cfg.API.CacheTTL),
	})
}

func viperBind(cmd *cobra.Command, key, flag string) error {
	return viper.BindPFlag(key, cmd.Flags().Lookup(flag))
}
