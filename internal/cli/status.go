package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletnotify/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the hot wallet balance, node height and pending credits",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	services := openServices(ctx)
	defer services.Close()
	network := services.Config.Network

	snap, err := services.Wallet.Balance(ctx)
	if err != nil {
		slog.Error("Failed to read balance", "error", err)
		os.Exit(1)
	}

	height := "unavailable"
	if info, err := services.Node.GetInfo(ctx); err != nil {
		slog.Warn("Node unreachable", "error", err)
	} else {
		height = fmt.Sprintf("%d", info.Blocks)
	}

	pending, err := services.Store.Credits().ListUnconfirmed(ctx, network)
	if err != nil {
		slog.Error("Failed to list pending credits", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "NETWORK\tHEIGHT\tAVAILABLE\tTOTAL\tPENDING")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
		network, height,
		domain.FormatMajor(snap.Available), domain.FormatMajor(snap.Total),
		len(pending),
	)
	_ = w.Flush()

	if len(pending) == 0 {
		return
	}
	_, _ = fmt.Fprintln(os.Stdout)
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "REF_ID\tACCOUNT\tADDRESS\tAMOUNT\tCREATED")
	for _, c := range pending {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			c.RefID, c.AccountID, c.Address, domain.FormatMajor(c.Amount), c.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}
