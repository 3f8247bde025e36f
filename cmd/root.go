package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quakelab/ddlocate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ddlocate",
	Short: "Master-event relative earthquake relocation",
	Long:  "Relocates a slave earthquake relative to a fixed master event from differential travel times, using a damped Geiger iteration over a 1-D velocity model.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
