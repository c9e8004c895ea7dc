package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cellage/app"
	"github.com/kilianp07/cellage/core/experiment"
	coremetrics "github.com/kilianp07/cellage/core/metrics"
	"github.com/kilianp07/cellage/infra/logger"
)

var (
	onlyTypes []string
	dryRun    bool
	reportOut string
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Run the aging test matrix",
	RunE:  runExperiment,
}

func init() {
	experimentCmd.Flags().StringSliceVar(&onlyTypes, "only", nil, "age types to run (calendar, cyclic, profile)")
	experimentCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the conditions and exit")
	experimentCmd.Flags().StringVar(&reportOut, "report", "", "HTML report path, overrides experiment.report")
	rootCmd.AddCommand(experimentCmd)
}

func runExperiment(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logClose, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closeLog(logClose)

	if len(onlyTypes) > 0 {
		cfg.Experiment.Matrix.AgeTypes = nil
		for _, s := range onlyTypes {
			at, err := experiment.ParseAgeType(s)
			if err != nil {
				return err
			}
			cfg.Experiment.Matrix.AgeTypes = append(cfg.Experiment.Matrix.AgeTypes, at)
		}
	}
	if reportOut != "" {
		cfg.Experiment.Report = reportOut
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	log := logger.New("main")
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()

	if dryRun {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tTYPE\tCONDITION")
		for i, c := range svc.Conditions() {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, c.AgeType, c.Name())
		}
		return tw.Flush()
	}

	out, err := svc.Run(ctx)
	counts := map[string]int{}
	for _, r := range out {
		counts[r.Outcome.Status]++
	}
	log.Infow("experiment finished", map[string]any{
		"completed":   counts[coremetrics.RunCompleted],
		"end_of_life": counts[coremetrics.RunEndOfLife],
		"failed":      counts[coremetrics.RunFailed],
		"canceled":    counts[coremetrics.RunCanceled],
	})
	if err != nil {
		return err
	}
	if n := counts[coremetrics.RunFailed]; n > 0 {
		return fmt.Errorf("%d of %d runs failed", n, len(out))
	}
	return nil
}
