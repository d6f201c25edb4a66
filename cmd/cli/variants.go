package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dnv-opensource/WindFarmer-automation/internal/batch"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/request"
)

var variantsCmd = &cobra.Command{
	Use:   "variants <request.json>",
	Short: "Calculate blockage-only or turbine-removal variants of one scenario",
	Long: `--kind blockage compares BEET under unstable/neutral and stable conditions with CFD.ML
blockage, all blockage-only. --kind turbines removes each of the first --count turbines of the
first farm in turn and reports the full yield of each layout.`,
	Args: cobra.ExactArgs(1),
	RunE: runVariants,
}

var (
	variantsKind  string
	variantsCount int
)

func init() {
	variantsCmd.Flags().StringVar(&variantsKind, "kind", "blockage", "blockage or turbines")
	variantsCmd.Flags().IntVar(&variantsCount, "count", 3, "turbines to remove, one at a time")
	rootCmd.AddCommand(variantsCmd)
}

func runVariants(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := request.Load(args[0])
	if err != nil {
		return err
	}

	var variants []request.Variant
	switch variantsKind {
	case "blockage":
		variants, err = req.BlockageVariants(model.ApplicationMethod(cfg.Models.ApplicationMethod), cfg.Models.GNNType)
	case "turbines":
		if req, err = req.WithModelSettings(cfg.Models.ToSelection()); err != nil {
			return err
		}
		variants, err = req.WithoutFlowMatrixExport().TurbineRemovalVariants(variantsCount)
	default:
		return fmt.Errorf("unknown variant kind %q", variantsKind)
	}
	if err != nil {
		return err
	}

	logger := newLogger(cfg, nil)
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	opts, err := batchOptions(cfg)
	if err != nil {
		return err
	}
	opts.Logger = logger
	results := batch.NewRunner(client, opts).RunVariants(cmd.Context(), batch.ScenarioName(args[0]), variants)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "variant\tfull yield (GWh/year)\tblockage efficiency\t")
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\tFAIL: %v\t\t\n", r.Name, r.Err)
			continue
		}
		blockage := "n/a"
		if r.Results.WeightedBlockageEfficiency != nil {
			blockage = fmt.Sprintf("%.2f%%", *r.Results.WeightedBlockageEfficiency*100)
		} else if gross := r.Results.Sum(model.GrossYield); gross != 0 {
			blockage = fmt.Sprintf("%.2f%%", r.Results.Sum(model.BlockageOnYield)/gross*100)
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t\n", r.Name, r.Results.Sum(model.FullYield)/1e3, blockage)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d variants failed\n", failed, len(results))
		return fmt.Errorf("%d variants failed", failed)
	}
	return nil
}
