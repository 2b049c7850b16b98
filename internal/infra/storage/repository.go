package storage

import (
	"context"
	"errors"

	"github.com/vietddude/walletnotify/internal/core/domain"
)

var (
	// ErrDuplicateRefID is returned when a credit or debit reference id is already taken
	ErrDuplicateRefID = errors.New("duplicate ref id")

	// ErrTxDone is returned when a unit of work is used after Commit or Rollback
	ErrTxDone = errors.New("unit of work already completed")
)

// CreditRepository handles credit storage operations.
// Lookups return (nil, nil) when nothing matches.
type CreditRepository interface {
	// Create inserts a credit, assigning its ID and timestamps when unset
	Create(ctx context.Context, credit *domain.Credit) error

	// GetByRefID retrieves a credit by reference id
	GetByRefID(ctx context.Context, refID string) (*domain.Credit, error)

	// ListUnconfirmed returns unconfirmed credits of a network, oldest first
	ListUnconfirmed(ctx context.Context, network string) ([]*domain.Credit, error)

	// Complete moves an unconfirmed credit to complete and sets its ref id.
	// Returns false when the credit was not unconfirmed.
	Complete(ctx context.Context, id string, refID string) (bool, error)
}

// DebitRepository handles outgoing payment records.
type DebitRepository interface {
	// Create inserts a debit, assigning its ID and timestamps when unset
	Create(ctx context.Context, debit *domain.Debit) error

	// GetByRefID retrieves a debit by reference id
	GetByRefID(ctx context.Context, refID string) (*domain.Debit, error)

	// ListByTxID returns all debits submitted under a txid
	ListByTxID(ctx context.Context, txid string) ([]*domain.Debit, error)

	// Complete moves an unconfirmed debit to complete and sets its ref id.
	// Returns false when the debit was not unconfirmed.
	Complete(ctx context.Context, id string, refID string) (bool, error)
}

// AddressRepository maps deposit addresses to accounts.
type AddressRepository interface {
	Save(ctx context.Context, address *domain.Address) error
	Get(ctx context.Context, address string) (*domain.Address, error)
}

// BalanceRepository stores append-only balance snapshots.
type BalanceRepository interface {
	// Append inserts a snapshot and assigns its ID
	Append(ctx context.Context, snapshot *domain.BalanceSnapshot) error

	// Latest returns the current snapshot: latest time, then highest ID
	Latest(ctx context.Context, network string) (*domain.BalanceSnapshot, error)
}

// UnitOfWork bundles writes into a single atomic commit.
// Rollback is safe to call after Commit.
type UnitOfWork interface {
	Credits() CreditRepository
	Debits() DebitRepository
	Balances() BalanceRepository
	Commit() error
	Rollback() error
}

// Store is the persistence surface of the pipeline.
type Store interface {
	Credits() CreditRepository
	Debits() DebitRepository
	Addresses() AddressRepository
	Balances() BalanceRepository

	// Begin starts a unit of work
	Begin(ctx context.Context) (UnitOfWork, error)

	// Health checks if the backing store is reachable
	Health(ctx context.Context) error

	Close() error
}
