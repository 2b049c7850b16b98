package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var newAddressCmd = &cobra.Command{
	Use:   "new-address [account_id]",
	Short: "Generate a deposit address and assign it to an account",
	Args:  cobra.ExactArgs(1),
	Run:   runNewAddress,
}

func init() {
	rootCmd.AddCommand(newAddressCmd)
}

func runNewAddress(cmd *cobra.Command, args []string) {
	accountID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid account id: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	services := openServices(ctx)
	defer services.Close()

	addr, err := services.Wallet.NewAddress(ctx, accountID)
	if err != nil {
		slog.Error("Failed to generate address", "error", err)
		os.Exit(1)
	}
	fmt.Println(addr)
}
