// Package chain defines the boundary between the reconciliation core and the
// wallet node.
package chain

import (
	"context"

	"github.com/vietddude/walletnotify/internal/core/domain"
)

// Node is the wallet node surface the pipeline depends on.
// Amounts passed in are minor units; amounts returned are major units
// exactly as the node reports them.
type Node interface {
	// GetNewAddress asks the wallet for a fresh deposit address.
	GetNewAddress(ctx context.Context) (string, error)

	// ValidateAddress reports whether address is well-formed for netcode.
	// Malformed input yields false, never an error.
	ValidateAddress(address, netcode string) bool

	// SendToAddress submits a payment and returns its txid.
	SendToAddress(ctx context.Context, address string, amount int64) (string, error)

	// GetTransaction returns the wallet view of txid.
	GetTransaction(ctx context.Context, txid string) (*domain.TransactionDetail, error)

	// GetBalance returns the wallet balance for account at minConf confirmations.
	GetBalance(ctx context.Context, account string, minConf int) (float64, error)

	// GetInfo returns the current block height and confirmed balance.
	GetInfo(ctx context.Context) (*domain.NodeInfo, error)
}
