package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/wallet"
)

var (
	sendAccount   int64
	sendReference string
)

var sendCmd = &cobra.Command{
	Use:   "send [address] [amount]",
	Short: "Send a payment from the hot wallet and record the debit",
	Args:  cobra.ExactArgs(2),
	Run:   runSend,
}

func init() {
	sendCmd.Flags().Int64Var(&sendAccount, "account", 0, "account id charged for the payment")
	sendCmd.Flags().StringVar(&sendReference, "reference", "", "free-form reference stored with the debit")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) {
	amount, err := domain.ParseMajor(args[1])
	if err != nil {
		fmt.Printf("Invalid amount: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	services := openServices(ctx)
	defer services.Close()

	debit, err := services.Wallet.Send(ctx, wallet.SendRequest{
		Address:   args[0],
		Amount:    amount,
		AccountID: sendAccount,
		Reference: sendReference,
	})
	if err != nil {
		slog.Error("Failed to send payment", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Sent %s %s to %s in %s\n", domain.FormatMajor(debit.Amount), debit.Currency, debit.Address, debit.TxID)
}
