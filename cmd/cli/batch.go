package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dnv-opensource/WindFarmer-automation/internal/atmos"
	"github.com/dnv-opensource/WindFarmer-automation/internal/batch"
	"github.com/dnv-opensource/WindFarmer-automation/internal/config"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
)

var batchCmd = &cobra.Command{
	Use:   "batch [scenario-dir]",
	Short: "Calculate and decompose every scenario JSON in a folder",
	Long: `Runs every *.json request in the folder (batch.input_dir by default) with the configured
model settings. Scenarios with neighbouring farms get a second, subject-only calculation so
internal and external effects can be separated.

Writes <scenario>.full.json, <scenario>.subject.json, summary.csv, efficiencies.csv and
report.txt into batch.output_dir and records every job in the sqlite ledger. Exits non-zero
when any scenario fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringP("out", "o", "", "output folder")
	batchCmd.Flags().Int("concurrency", 0, "scenarios calculated at once")
	_ = viperBind(batchCmd, "batch.output_dir", "out")
	_ = viperBind(batchCmd, "batch.concurrency", "concurrency")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.Batch.InputDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no scenario folder given and batch.input_dir is not set")
	}
	paths, err := batch.Discover(dir)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := store.New(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	logger := newLogger(cfg, st)
	st.SetLogger(logger.With("module", "store"))

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	opts, err := batchOptions(cfg)
	if err != nil {
		return err
	}
	run, err := st.CreateRun(ctx, "batch")
	if err != nil {
		return err
	}
	opts.Recorder = st
	opts.RunID = run.ID
	opts.Logger = logger.With("run_id", run.ID)

	report, runErr := batch.NewRunner(client, opts).Run(ctx, paths)
	if err := st.FinishRun(context.WithoutCancel(ctx), run.ID, len(report.Results), report.Failed()); err != nil {
		logger.Error("could not finish run", "error", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n%s", run.ID, report.String())
	if runErr != nil {
		return runErr
	}
	if !report.OK() {
		return fmt.Errorf("%d of %d scenarios failed", report.Failed(), len(report.Results))
	}
	return nil
}

// batchOptions turns the config into runner options, loading atmospheric presets when configured.
func batchOptions(cfg *config.Config) (batch.Options, error) {
	opts := batch.Options{
		Models:       cfg.Models.ToSelection(),
		OutputDir:    cfg.Batch.OutputDir,
		Concurrency:  cfg.Batch.Concurrency,
		Retries:      cfg.Polling.Retries,
		RetryBackoff: cfg.Polling.RetryBackoff,
	}
	if cfg.Atmosphere.Enabled() {
		presets, err := atmos.LoadPresets(cfg.Atmosphere.PresetsFile)
		if err != nil {
			return batch.Options{}, err
		}
		opts.Atmosphere = &batch.Atmosphere{Source: cfg.Atmosphere.Source(), Presets: presets}
	}
	return opts, nil
}
