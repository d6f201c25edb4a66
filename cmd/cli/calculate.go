package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/request"
)

var calculateCmd = &cobra.Command{
	Use:   "calculate <request.json>",
	Short: "Run one AEP calculation and print the full yield of each farm",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalculate,
}

var (
	calculateOut         string
	calculateApplyModels bool
	calculateSync        bool
	calculateWindSpeeds  bool
)

func init() {
	calculateCmd.Flags().StringVarP(&calculateOut, "out", "o", "", "write the raw result set to this file")
	calculateCmd.Flags().BoolVar(&calculateApplyModels, "apply-models", false, "apply the configured model settings and disable flow matrix export")
	calculateCmd.Flags().BoolVar(&calculateWindSpeeds, "wind-speeds", false, "export ambient and waked wind speeds in the flow matrix output")
	calculateCmd.Flags().BoolVar(&calculateSync, "sync", false, "use the synchronous endpoint regardless of farm size")
	rootCmd.AddCommand(calculateCmd)
}

func runCalculate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, newLogger(cfg, nil))
	if err != nil {
		return err
	}

	req, err := request.Load(args[0])
	if err != nil {
		return err
	}
	if calculateApplyModels {
		if req, err = req.WithModelSettings(cfg.Models.ToSelection()); err != nil {
			return err
		}
		req = req.WithoutFlowMatrixExport()
	}
	if calculateWindSpeeds {
		req = req.WithWindSpeedExport()
	}

	ctx := cmd.Context()
	var results *model.AepResultSet
	if calculateSync {
		results, err = client.CalculateSync(ctx, req)
	} else {
		results, err = client.Calculate(ctx, req, req.TurbineCount())
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range results.WindFarmAepOutputs {
		fmt.Fprintf(out, "%s\tFull annual energy yield: %.2f GWh/year\n", f.WindFarmName, f.FullYield/1e3)
	}
	if calculateOut == "" {
		return nil
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(calculateOut, b, 0o644)
}
