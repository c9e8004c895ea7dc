package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cellage/config"
	"github.com/kilianp07/cellage/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "cellage",
	Short:         "Lithium-ion cell aging simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file and applies its logging section.
// A missing default file yields the built-in configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, io.Closer, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		def := config.Default()
		def.SetDefaults()
		cfg = &def
	}
	l := cfg.Logging
	closer := logger.Configure(logger.Options{
		Level:      l.Level,
		Format:     l.Format,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
	})
	return cfg, closer, nil
}

func closeLog(c io.Closer) {
	if err := c.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log: %v\n", err)
	}
}
