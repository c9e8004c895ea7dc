package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cellage/core/battery"
	"github.com/kilianp07/cellage/core/experiment"
	"github.com/kilianp07/cellage/infra/logger"
	"github.com/kilianp07/cellage/pkg/export"
)

var (
	checkupTemp  float64
	checkupV     float64
	checkupPause time.Duration
	traceOut     string
)

var checkupCmd = &cobra.Command{
	Use:   "checkup",
	Short: "Check up a single cell before and after a storage pause",
	RunE:  runCheckup,
}

func init() {
	checkupCmd.Flags().Float64Var(&checkupTemp, "temp", 25, "storage temperature (°C)")
	checkupCmd.Flags().Float64Var(&checkupV, "voltage", 3.736, "storage voltage (V)")
	checkupCmd.Flags().DurationVar(&checkupPause, "pause", 7*24*time.Hour, "storage time between check-ups")
	checkupCmd.Flags().StringVar(&traceOut, "trace", "", "write the micro-step trace to this .csv or .json file")
	rootCmd.AddCommand(checkupCmd)
}

func runCheckup(cmd *cobra.Command, _ []string) error {
	cfg, logClose, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closeLog(logClose)

	s := cfg.Experiment.Settings
	p := cfg.Cell
	if s.ThermalResistance > 0 {
		p.RTh = s.ThermalResistance
	}
	opts := []battery.Option{battery.WithLogger(logger.New("cell"))}
	if traceOut != "" {
		opts = append(opts, battery.WithTrace())
	}
	cell := battery.New(p, battery.Init(p, s.Storage), s.Start, opts...)
	cond := experiment.Condition{AgeType: experiment.Calendar, Temp: checkupTemp, V: checkupV}
	op := cond.OperatingPoint(s)

	w := cmd.OutOrStdout()
	first := cell.Checkup(s.Protocol, op)
	cell.Pause(checkupPause, s.RestRes, battery.Constant(checkupTemp))
	second := cell.Checkup(s.Protocol, op)

	fmt.Fprintf(w, "%-8s %-20s %10s %10s %10s\n", "checkup", "end", "cap (Ah)", "meas (Ah)", "loss (%)")
	for i, r := range []battery.CheckupResult{first, second} {
		fmt.Fprintf(w, "%-8d %-20s %10.4f %10.4f %10.3f\n", i+1, r.End.UTC().Format(time.DateTime),
			r.CapRemaining, r.MeasuredAh, 100*r.Aging.QLossTotal())
	}
	if traceOut != "" {
		if err := export.SaveTrace(traceOut, cell.Trace.Samples); err != nil {
			return err
		}
		fmt.Fprintf(w, "trace: %d samples written to %s\n", cell.Trace.Len(), traceOut)
	}
	return nil
}
