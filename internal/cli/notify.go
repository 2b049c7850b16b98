package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [transaction|block] [data]",
	Short: "Write one notification record to the daemon's pipe",
	Long: `notify is meant to be invoked by the node's walletnotify and blocknotify hooks:

  walletnotify=walletnotify notify transaction %s
  blocknotify=walletnotify notify block %s`,
	Args: cobra.ExactArgs(2),
	Run:  runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	rec := domain.NotificationRecord{
		Network: cfg.Network,
		Type:    domain.NotificationType(args[0]),
		Data:    args[1],
	}
	if _, err := domain.ParseNotification(rec.String()); err != nil {
		fmt.Printf("Invalid notification: %v\n", err)
		os.Exit(1)
	}

	if err := notify.Send(cfg.Notify.Pipe, rec); err != nil {
		if errors.Is(err, notify.ErrNoReader) {
			slog.Error("walletnotify daemon is not running", "pipe", cfg.Notify.Pipe)
		} else {
			slog.Error("Failed to send notification", "error", err)
		}
		os.Exit(1)
	}
}
