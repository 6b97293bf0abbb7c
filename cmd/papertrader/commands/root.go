package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "papertrader",
	Short: "Regime-aware paper trading of credit-momentum signals",
	Long: `papertrader classifies the market regime, evaluates the credit-momentum
signals and runs the paper positions they open through a five-day hold.

Examples:
  papertrader run --date 2025-01-15
  papertrader serve
  papertrader positions --status OPEN
  papertrader history --limit 20`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug|info|warn|error)")
}
