package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cellage/core/battery"
)

var ocvStep float64

var ocvCmd = &cobra.Command{
	Use:   "ocv",
	Short: "Print the open-circuit voltage and state of energy table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if ocvStep <= 0 || ocvStep > 1 {
			return fmt.Errorf("step must be in (0, 1], got %g", ocvStep)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "SoC\tOCV (V)\tSoE\tanode (V)\t")
		n := int(1/ocvStep + 0.5)
		for k := 0; k <= n; k++ {
			soc := min(float64(k)*ocvStep, 1)
			v := battery.OCVFromSoC(soc)
			fmt.Fprintf(tw, "%.3f\t%.4f\t%.4f\t%.4f\t\n", soc, v, battery.SoEFromSoC(soc), battery.AnodePotential(v))
		}
		return tw.Flush()
	},
}

func init() {
	ocvCmd.Flags().Float64Var(&ocvStep, "step", 0.05, "SoC increment")
	rootCmd.AddCommand(ocvCmd)
}
