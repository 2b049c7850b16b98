// Package reconcile turns node notifications into credits and keeps the
// hot wallet balance aligned with the node.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/infra/rpc"
)

// DefaultCallTimeout bounds a single node call made by a worker.
const DefaultCallTimeout = 30 * time.Second

// SendConfirmer records that an outgoing payment was seen by the wallet.
type SendConfirmer interface {
	ConfirmSend(ctx context.Context, address string, amount int64, refID string) error
}

// Config holds the settings shared by both workers.
type Config struct {
	Network  string
	Currency string
	// Confirmations is the depth at which a credit becomes complete.
	Confirmations int64
	CallTimeout   time.Duration
}

func (c Config) callTimeout() time.Duration {
	if c.CallTimeout <= 0 {
		return DefaultCallTimeout
	}
	return c.CallTimeout
}

func (c Config) confirmed(tx *domain.TransactionDetail) bool {
	return tx.Confirmations >= c.Confirmations
}

// rejected reports whether the node itself answered with an error, as
// opposed to the call failing in transit.
func rejected(err error) bool {
	var rpcErr *rpc.Error
	return errors.As(err, &rpcErr)
}

// detach keeps in-flight work running after shutdown begins while still
// bounding each call.
func detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
