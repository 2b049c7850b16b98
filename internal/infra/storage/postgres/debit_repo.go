package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/infra/storage"
)

// DebitRepo implements storage.DebitRepository using PostgreSQL.
type DebitRepo struct {
	q sqlx.ExtContext
}

// NewDebitRepo creates a new PostgreSQL debit repository.
func NewDebitRepo(q sqlx.ExtContext) *DebitRepo {
	return &DebitRepo{q: q}
}

type debitRow struct {
	ID        string         `db:"id"`
	Amount    int64          `db:"amount"`
	Address   string         `db:"address"`
	Currency  string         `db:"currency"`
	Network   string         `db:"network"`
	State     string         `db:"state"`
	Reference string         `db:"reference"`
	TxID      string         `db:"txid"`
	RefID     sql.NullString `db:"ref_id"`
	AccountID int64          `db:"account_id"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r *debitRow) toDomain() *domain.Debit {
	return &domain.Debit{
		ID:        r.ID,
		Amount:    r.Amount,
		Address:   r.Address,
		Currency:  r.Currency,
		Network:   r.Network,
		State:     domain.DebitState(r.State),
		Reference: r.Reference,
		TxID:      r.TxID,
		RefID:     r.RefID.String,
		AccountID: r.AccountID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const debitColumns = `id, amount, address, currency, network, state, reference, txid, ref_id, account_id, created_at, updated_at`

// Create inserts a debit. An empty ref id is stored as NULL.
func (r *DebitRepo) Create(ctx context.Context, debit *domain.Debit) error {
	if debit.ID == "" {
		debit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if debit.CreatedAt.IsZero() {
		debit.CreatedAt = now
	}
	debit.UpdatedAt = now

	query := `
		INSERT INTO debits (` + debitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12)
	`
	_, err := r.q.ExecContext(ctx, query,
		debit.ID,
		debit.Amount,
		debit.Address,
		debit.Currency,
		debit.Network,
		string(debit.State),
		debit.Reference,
		debit.TxID,
		debit.RefID,
		debit.AccountID,
		debit.CreatedAt,
		debit.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("debit %s: %w", debit.RefID, storage.ErrDuplicateRefID)
	}
	if err != nil {
		return fmt.Errorf("failed to create debit: %w", err)
	}
	return nil
}

// GetByRefID retrieves a debit by reference id.
func (r *DebitRepo) GetByRefID(ctx context.Context, refID string) (*domain.Debit, error) {
	query := `SELECT ` + debitColumns + ` FROM debits WHERE ref_id = $1`

	var row debitRow
	err := sqlx.GetContext(ctx, r.q, &row, query, refID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debit: %w", err)
	}
	return row.toDomain(), nil
}

// ListByTxID returns debits submitted under txid, oldest first.
func (r *DebitRepo) ListByTxID(ctx context.Context, txid string) ([]*domain.Debit, error) {
	query := `SELECT ` + debitColumns + ` FROM debits WHERE txid = $1 ORDER BY created_at, id`

	var rows []debitRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, txid); err != nil {
		return nil, fmt.Errorf("failed to list debits: %w", err)
	}

	debits := make([]*domain.Debit, len(rows))
	for i := range rows {
		debits[i] = rows[i].toDomain()
	}
	return debits, nil
}

// Complete confirms an unconfirmed debit and records its ref id.
func (r *DebitRepo) Complete(ctx context.Context, id string, refID string) (bool, error) {
	query := `
		UPDATE debits
		SET state = $1, ref_id = $2, updated_at = NOW()
		WHERE id = $3 AND state = $4
	`
	res, err := r.q.ExecContext(ctx, query,
		string(domain.DebitStateComplete),
		refID,
		id,
		string(domain.DebitStateUnconfirmed),
	)
	if isUniqueViolation(err) {
		return false, fmt.Errorf("debit %s: %w", refID, storage.ErrDuplicateRefID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to complete debit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
