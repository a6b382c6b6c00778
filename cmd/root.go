package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/karuna-health/assess-portal/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "assess-portal",
	Short: "Facility assessment portal for the PMTCT quality campaign",
	Long:  "Collects facility assessments against the PMTCT indicator catalog, scores them on the four-band scale, and produces summary, detail and action-plan reports.",
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
