package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yosef2222/FinanceTracker/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finhelper",
	Short: "Personal finance aggregation and reconciliation API",
	Long: `finhelper serves the FinHelper API: transaction ledger, budgets with
overlap protection, loan projections, the monthly dashboard and
inference-backed parsing and advice.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Local development: .env never overrides the real environment.
		_ = config.LoadDotEnv(".env")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
