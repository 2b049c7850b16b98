package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/walletnotify/internal/core/domain"
)

// AddressRepo implements storage.AddressRepository using PostgreSQL.
type AddressRepo struct {
	q sqlx.ExtContext
}

// NewAddressRepo creates a new PostgreSQL address repository.
func NewAddressRepo(q sqlx.ExtContext) *AddressRepo {
	return &AddressRepo{q: q}
}

type addressRow struct {
	Address   string    `db:"address"`
	AccountID int64     `db:"account_id"`
	Network   string    `db:"network"`
	CreatedAt time.Time `db:"created_at"`
}

// Save records the owner of an address.
func (r *AddressRepo) Save(ctx context.Context, address *domain.Address) error {
	if address.CreatedAt.IsZero() {
		address.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO addresses (address, account_id, network, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			network = EXCLUDED.network
	`
	_, err := r.q.ExecContext(ctx, query, address.Address, address.AccountID, address.Network, address.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save address: %w", err)
	}
	return nil
}

// Get looks up the owner of an address.
func (r *AddressRepo) Get(ctx context.Context, address string) (*domain.Address, error) {
	query := `SELECT address, account_id, network, created_at FROM addresses WHERE address = $1`

	var row addressRow
	err := sqlx.GetContext(ctx, r.q, &row, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return &domain.Address{
		Address:   row.Address,
		AccountID: row.AccountID,
		Network:   row.Network,
		CreatedAt: row.CreatedAt,
	}, nil
}
