package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletnotify/internal/core/domain"
)

var initBalanceCmd = &cobra.Command{
	Use:   "init-balance",
	Short: "Seed a zero hot wallet balance for the configured network",
	Run:   runInitBalance,
}

func init() {
	rootCmd.AddCommand(initBalanceCmd)
}

func runInitBalance(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	services := openServices(ctx)
	defer services.Close()

	snap, created, err := services.Ledger.Init(ctx, services.Config.Network)
	if err != nil {
		slog.Error("Failed to initialize balance", "error", err)
		os.Exit(1)
	}
	if !created {
		fmt.Printf("Balance already initialized for %s: available %s, total %s\n",
			snap.Network, domain.FormatMajor(snap.Available), domain.FormatMajor(snap.Total))
		return
	}
	fmt.Printf("Initialized zero balance for %s\n", snap.Network)
}
