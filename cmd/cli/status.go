package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the access key and report the remote API versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg, newLogger(cfg, nil))
		if err != nil {
			return err
		}
		info, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "API:                 %s\n", client.BaseURL())
		fmt.Fprintf(out, "Message:             %s\n", info.Message)
		fmt.Fprintf(out, "API version:         %s\n", info.APIVersion)
		fmt.Fprintf(out, "Calculation library: %s\n", info.CalculationLibVer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
