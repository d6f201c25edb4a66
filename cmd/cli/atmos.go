package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dnv-opensource/WindFarmer-automation/internal/atmos"
	"github.com/dnv-opensource/WindFarmer-automation/internal/request"
)

var atmosCmd = &cobra.Command{
	Use:   "atmos <request.json>",
	Short: "Attach atmospheric conditions to a request",
	Long: `Builds atmospheric condition classes for the mean hub and tip height of the subject farms
and writes the request back out. The presets come from atmosphere.presets_file; the direction
distribution from --preset (one class for all directions) or the stable weights file.`,
	Args: cobra.ExactArgs(1),
	RunE: runAtmos,
}

var (
	atmosOut     string
	atmosPreset  string
	atmosWeights string
)

func init() {
	f := atmosCmd.Flags()
	f.StringVarP(&atmosOut, "out", "o", "", "output request file (default: overwrite the input)")
	f.StringVar(&atmosPreset, "preset", "", "use a single preset for every direction")
	f.StringVar(&atmosWeights, "weights", "", "tab-separated stable weights per direction bin")
	rootCmd.AddCommand(atmosCmd)
}

func runAtmos(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Atmosphere.Enabled() {
		return fmt.Errorf("atmosphere.presets_file is not configured")
	}
	presets, err := atmos.LoadPresets(cfg.Atmosphere.PresetsFile)
	if err != nil {
		return err
	}
	src := cfg.Atmosphere.Source()
	if atmosPreset != "" {
		src.SinglePreset = atmosPreset
	}
	if atmosWeights != "" {
		src.WeightsPath = atmosWeights
	}

	req, err := request.Load(args[0])
	if err != nil {
		return err
	}
	hub, tip, err := req.SubjectHeights()
	if err != nil {
		return err
	}
	req, err = req.AtmosphericConditions(src, presets)
	if err != nil {
		return err
	}

	out := atmosOut
	if out == "" {
		out = args[0]
	}
	if err := req.Save(out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Atmospheric conditions for hub %.1f m, tip %.1f m written to %s\n", hub, tip, out)
	return nil
}
