package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/access-cli/internal/measure"
)

var measuresFile string

var measuresCmd = &cobra.Command{
	Use:   "measures",
	Short: "List the configured accessibility measures",
	RunE: func(cmd *cobra.Command, args []string) error {
		var reg *measure.Registry
		var err error
		if measuresFile != "" {
			reg, err = measure.LoadFile(measuresFile)
		} else {
			reg, err = measure.FromPresets()
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFAMILY\tPARAM\tCUTOFF")
		for _, m := range reg.Measures() {
			cutoff := "-"
			if m.Cutoff > 0 {
				cutoff = fmt.Sprintf("%g", m.Cutoff)
			}
			fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", m.Name, m.Function.Family(), m.Function.Param(), cutoff)
		}
		return w.Flush()
	},
}

func init() {
	measuresCmd.Flags().StringVar(&measuresFile, "measures", "", "measure catalog YAML (default: built-in presets)")
	rootCmd.AddCommand(measuresCmd)
}
