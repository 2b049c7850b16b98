// Package notify reads wallet and block notifications from the node and
// hands them to the reconciliation workers.
package notify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/metrics"
)

// Reader parses notification records and dispatches them by type.
// Malformed records are logged and dropped; they never stop the reader.
type Reader struct {
	network string
	txs     *TxQueue
	blocks  *Coalescer
	log     *slog.Logger
}

// NewReader creates a reader that accepts records for network only.
func NewReader(network string, txs *TxQueue, blocks *Coalescer) *Reader {
	return &Reader{
		network: network,
		txs:     txs,
		blocks:  blocks,
		log:     slog.Default().With("component", "reader"),
	}
}

// Read consumes r until EOF (nil) or a read error. A final record without a
// trailing newline is still processed.
func (r *Reader) Read(ctx context.Context, src io.Reader) error {
	br := bufio.NewReader(src)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			r.Handle(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Handle validates and dispatches a single record.
func (r *Reader) Handle(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	rec, err := domain.ParseNotification(line)
	if (err == nil || errors.Is(err, domain.ErrUnknownEventType)) && rec.Network != r.network {
		err = fmt.Errorf("%w: got %q, want %q", domain.ErrNetworkMismatch, rec.Network, r.network)
	}
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(resultType(rec), resultFor(err)).Inc()
		r.log.Error("dropping notification", "line", strings.TrimSpace(line), "error", err)
		return
	}

	switch rec.Type {
	case domain.NotificationTransaction:
		r.txs.Push(rec.Data)
		metrics.NotificationsTotal.WithLabelValues(string(rec.Type), "queued").Inc()
		r.log.Debug("transaction queued", "txid", rec.Data)
	case domain.NotificationBlock:
		if r.blocks.Signal() {
			metrics.NotificationsTotal.WithLabelValues(string(rec.Type), "queued").Inc()
		} else {
			metrics.NotificationsTotal.WithLabelValues(string(rec.Type), "coalesced").Inc()
		}
		r.log.Debug("block signalled", "hash", rec.Data)
	}
}

func resultType(rec domain.NotificationRecord) string {
	switch rec.Type {
	case domain.NotificationTransaction, domain.NotificationBlock:
		return string(rec.Type)
	default:
		return "unknown"
	}
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedNotification):
		return "malformed"
	case errors.Is(err, domain.ErrNetworkMismatch):
		return "network_mismatch"
	case errors.Is(err, domain.ErrUnknownEventType):
		return "unknown_type"
	default:
		return "error"
	}
}
