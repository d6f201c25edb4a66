package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dnv-opensource/WindFarmer-automation/internal/efficiency"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

var breakdownCmd = &cobra.Command{
	Use:   "breakdown --full <results.json> [--subject <results.json>]",
	Short: "Decompose previously saved result sets into wake and blockage efficiencies",
	Long: `Reads result sets saved by 'calculate --out' or 'batch' and prints the efficiency summary.
The calculation settings are taken from the models section of the config (or the model flags)
and must match the settings the results were computed with.`,
	Args: cobra.NoArgs,
	RunE: runBreakdown,
}

var (
	breakdownFull       string
	breakdownSubject    string
	breakdownNeighbours bool
	breakdownCSV        string
	breakdownJSON       bool
)

func init() {
	f := breakdownCmd.Flags()
	f.StringVar(&breakdownFull, "full", "", "subject+neighbours result set (required)")
	f.StringVar(&breakdownSubject, "subject", "", "subject-only result set")
	f.BoolVar(&breakdownNeighbours, "neighbours", false, "the full result set includes neighbouring farms")
	f.StringVar(&breakdownCSV, "csv", "", "also write the summary to this CSV file")
	f.BoolVar(&breakdownJSON, "json", false, "print the raw efficiencies as JSON")
	_ = breakdownCmd.MarkFlagRequired("full")
	rootCmd.AddCommand(breakdownCmd)
}

func runBreakdown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, err := cfg.ContextSpec().Context()
	if err != nil {
		return err
	}

	full, err := readResultSet(breakdownFull)
	if err != nil {
		return err
	}
	var subject *model.AepResultSet
	if breakdownSubject != "" {
		if subject, err = readResultSet(breakdownSubject); err != nil {
			return err
		}
	}

	b, err := efficiency.New(ctx, full, subject, breakdownNeighbours)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if breakdownJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b.Efficiencies()); err != nil {
			return err
		}
	} else if err := printSummary(out, b.Summary()); err != nil {
		return err
	}

	if breakdownCSV != "" {
		return efficiency.WriteSummaryCSV(breakdownCSV, []efficiency.Summary{b.Summary()})
	}
	return nil
}

func readResultSet(path string) (*model.AepResultSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rs model.AepResultSet
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rs, nil
}

func printSummary(out io.Writer, s efficiency.Summary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Farm set\t%s\t\n", s.FarmSet)
	for _, r := range s.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Label, r.Value, r.Unit)
	}
	return w.Flush()
}
