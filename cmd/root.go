package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brandintel/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "brandintel",
	Short: "Brand-intelligence analysis job pipeline",
	Long:  "Tracks asynchronous brand-analysis jobs against the external engine, reconciles the result shapes into one canonical brand kit, and materializes roadmap, social, and summary projections.",
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
