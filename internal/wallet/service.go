// Package wallet exposes the hot wallet operations that sit alongside the
// notification pipeline: deposit addresses, outgoing sends and their
// confirmation.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/infra/chain"
	"github.com/vietddude/walletnotify/internal/infra/storage"
	"github.com/vietddude/walletnotify/internal/ledger"
)

// Config identifies the wallet the service operates on.
type Config struct {
	Network  string
	Netcode  string
	Currency string
}

// Service implements reconcile.SendConfirmer.
type Service struct {
	cfg    Config
	node   chain.Node
	store  storage.Store
	ledger *ledger.Ledger
	log    *slog.Logger
}

func NewService(cfg Config, node chain.Node, store storage.Store, l *ledger.Ledger) *Service {
	return &Service{
		cfg:    cfg,
		node:   node,
		store:  store,
		ledger: l,
		log:    slog.Default().With("component", "wallet", "network", cfg.Network),
	}
}

// SendRequest describes an outgoing payment. Amount is in minor units.
type SendRequest struct {
	Address   string
	Amount    int64
	AccountID int64
	Reference string
}

// NewAddress asks the node for a deposit address and assigns it to accountID.
func (s *Service) NewAddress(ctx context.Context, accountID int64) (string, error) {
	addr, err := s.node.GetNewAddress(ctx)
	if err != nil {
		return "", err
	}
	err = s.store.Addresses().Save(ctx, &domain.Address{
		Address:   addr,
		AccountID: accountID,
		Network:   s.cfg.Network,
	})
	if err != nil {
		return "", fmt.Errorf("record address %s: %w", addr, err)
	}
	s.log.Info("address assigned", "address", addr, "account_id", accountID)
	return addr, nil
}

// ValidateAddress reports whether address is usable on this wallet's network.
func (s *Service) ValidateAddress(address string) bool {
	return s.node.ValidateAddress(address, s.cfg.Netcode)
}

// Send submits a payment, records it as an unconfirmed debit and lowers
// both balances immediately.
func (s *Service) Send(ctx context.Context, req SendRequest) (*domain.Debit, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", req.Amount)
	}
	if !s.ValidateAddress(req.Address) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, req.Address)
	}

	txid, err := s.node.SendToAddress(ctx, req.Address, req.Amount)
	if err != nil {
		return nil, err
	}

	debit := &domain.Debit{
		Amount:    req.Amount,
		Address:   req.Address,
		Currency:  s.cfg.Currency,
		Network:   s.cfg.Network,
		State:     domain.DebitStateUnconfirmed,
		Reference: req.Reference,
		TxID:      txid,
		AccountID: req.AccountID,
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("payment %s submitted but not recorded: %w", txid, err)
	}
	defer uow.Rollback()

	err = uow.Debits().Create(ctx, debit)
	var snap *domain.BalanceSnapshot
	if err == nil {
		snap, err = s.ledger.AdjustIn(ctx, uow, s.cfg.Network, ledger.Delta{
			Available: -req.Amount,
			Total:     -req.Amount,
		})
	}
	if err == nil {
		err = uow.Commit()
	}
	if err != nil {
		// The payment is already on the network; the next block re-ground
		// corrects the balance.
		s.log.Error("payment submitted but not recorded", "txid", txid, "error", err)
		return nil, fmt.Errorf("payment %s submitted but not recorded: %w", txid, err)
	}

	s.ledger.Record(snap)
	s.log.Info("payment sent", "txid", txid, "address", req.Address, "amount", domain.FormatMajor(req.Amount))
	return debit, nil
}

// ConfirmSend marks the debit behind a send output as seen by the wallet.
// Sends not initiated through this service are ignored.
func (s *Service) ConfirmSend(ctx context.Context, address string, amount int64, refID string) error {
	existing, err := s.store.Debits().GetByRefID(ctx, refID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	txid, _ := domain.SplitRefID(refID)
	debits, err := s.store.Debits().ListByTxID(ctx, txid)
	if err != nil {
		return err
	}

	var match *domain.Debit
	for _, d := range debits {
		if d.State != domain.DebitStateUnconfirmed || d.Address != address {
			continue
		}
		if d.Amount == amount {
			match = d
			break
		}
		if match == nil {
			match = d
		}
	}
	if match == nil {
		s.log.Debug("no debit for send output", "ref_id", refID, "address", address)
		return nil
	}

	ok, err := s.store.Debits().Complete(ctx, match.ID, refID)
	if errors.Is(err, storage.ErrDuplicateRefID) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("confirm debit %s: %w", match.ID, err)
	}
	if ok {
		s.log.Info("send confirmed", "ref_id", refID, "debit_id", match.ID)
	}
	return nil
}

// Balance returns the current balance snapshot.
func (s *Service) Balance(ctx context.Context) (*domain.BalanceSnapshot, error) {
	return s.ledger.Current(ctx, s.cfg.Network)
}
