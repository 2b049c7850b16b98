package bitcoin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/infra/chain"
	"github.com/vietddude/walletnotify/internal/infra/rpc"
)

var _ chain.Node = (*Adapter)(nil)

// Adapter talks to bitcoind's wallet RPC.
type Adapter struct {
	client  rpc.Caller
	netcode string
	params  *chaincfg.Params
	log     *slog.Logger
}

// NewAdapter creates a bitcoind adapter for the given netcode (BTC, XTN or REG).
func NewAdapter(client rpc.Caller, netcode string) (*Adapter, error) {
	params, err := ParamsFor(netcode)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client:  client,
		netcode: netcode,
		params:  params,
		log:     slog.Default().With("component", "bitcoin"),
	}, nil
}

// ParamsFor maps a netcode to its address parameters.
func ParamsFor(netcode string) (*chaincfg.Params, error) {
	switch netcode {
	case "BTC":
		return &chaincfg.MainNetParams, nil
	case "XTN":
		return &chaincfg.TestNet3Params, nil
	case "REG":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported netcode %q", netcode)
	}
}

func (a *Adapter) GetNewAddress(ctx context.Context) (string, error) {
	var addr string
	if err := a.call(ctx, &addr, "getnewaddress"); err != nil {
		return "", fmt.Errorf("failed to get new address: %w", err)
	}
	return addr, nil
}

func (a *Adapter) ValidateAddress(address, netcode string) bool {
	params, err := ParamsFor(netcode)
	if err != nil {
		return false
	}
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return false
	}
	return decoded.IsForNet(params)
}

func (a *Adapter) SendToAddress(ctx context.Context, address string, amount int64) (string, error) {
	if !a.ValidateAddress(address, a.netcode) {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidAddress, address)
	}
	var txid string
	if err := a.call(ctx, &txid, "sendtoaddress", address, btcutil.Amount(amount).ToBTC()); err != nil {
		return "", fmt.Errorf("failed to send to address: %w", err)
	}
	return txid, nil
}

func (a *Adapter) GetTransaction(ctx context.Context, txid string) (*domain.TransactionDetail, error) {
	var tx domain.TransactionDetail
	if err := a.call(ctx, &tx, "gettransaction", txid); err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", txid, err)
	}
	if tx.TxID == "" {
		tx.TxID = txid
	}
	return &tx, nil
}

func (a *Adapter) GetBalance(ctx context.Context, account string, minConf int) (float64, error) {
	var balance float64
	if err := a.call(ctx, &balance, "getbalance", account, minConf); err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// GetInfo combines getblockcount and getbalance; bitcoind removed getinfo.
func (a *Adapter) GetInfo(ctx context.Context) (*domain.NodeInfo, error) {
	var info domain.NodeInfo
	if err := a.call(ctx, &info.Blocks, "getblockcount"); err != nil {
		return nil, fmt.Errorf("failed to get block count: %w", err)
	}
	if err := a.call(ctx, &info.Balance, "getbalance"); err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &info, nil
}

func (a *Adapter) call(ctx context.Context, out any, method string, params ...any) error {
	raw, err := a.client.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid %s response: %w", method, err)
	}
	return nil
}
