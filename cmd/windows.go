package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airshed-group/exposure-cli/internal/tileset"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List the configured pollutant tileset windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := tileset.LoadTable(cfg.Map.WindowsFile)
		if err != nil {
			return err
		}

		windows := table.Windows()
		if len(windows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no windows configured")
			return nil
		}
		for _, w := range windows {
			fmt.Fprintf(cmd.OutOrStdout(), "%s hours %02d-%02d  %s\n",
				w.Date, w.StartHour, w.EndHour, w.SourceLayer)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(windowsCmd)
}
