package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/walletnotify/internal/infra/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db *DB
}

// NewStore creates a store backed by db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Credits() storage.CreditRepository   { return NewCreditRepo(s.db) }
func (s *Store) Debits() storage.DebitRepository     { return NewDebitRepo(s.db) }
func (s *Store) Addresses() storage.AddressRepository { return NewAddressRepo(s.db) }
func (s *Store) Balances() storage.BalanceRepository { return NewBalanceRepo(s.db) }

func (s *Store) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	uow, err := s.db.NewUnitOfWork(ctx)
	if err != nil {
		return nil, err
	}
	return uow, nil
}

func (s *Store) Health(ctx context.Context) error {
	if err := s.db.Health(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
