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

// CreditRepo implements storage.CreditRepository using PostgreSQL.
// It runs against either the pool or an open transaction.
type CreditRepo struct {
	q sqlx.ExtContext
}

// NewCreditRepo creates a new PostgreSQL credit repository.
func NewCreditRepo(q sqlx.ExtContext) *CreditRepo {
	return &CreditRepo{q: q}
}

type creditRow struct {
	ID        string    `db:"id"`
	Amount    int64     `db:"amount"`
	Address   string    `db:"address"`
	Currency  string    `db:"currency"`
	Network   string    `db:"network"`
	State     string    `db:"state"`
	Reference string    `db:"reference"`
	RefID     string    `db:"ref_id"`
	AccountID int64     `db:"account_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *creditRow) toDomain() *domain.Credit {
	return &domain.Credit{
		ID:        r.ID,
		Amount:    r.Amount,
		Address:   r.Address,
		Currency:  r.Currency,
		Network:   r.Network,
		State:     domain.CreditState(r.State),
		Reference: r.Reference,
		RefID:     r.RefID,
		AccountID: r.AccountID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const creditColumns = `id, amount, address, currency, network, state, reference, ref_id, account_id, created_at, updated_at`

// Create inserts a credit.
func (r *CreditRepo) Create(ctx context.Context, credit *domain.Credit) error {
	if credit.ID == "" {
		credit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = now
	}
	credit.UpdatedAt = now

	query := `
		INSERT INTO credits (` + creditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.q.ExecContext(ctx, query,
		credit.ID,
		credit.Amount,
		credit.Address,
		credit.Currency,
		credit.Network,
		string(credit.State),
		credit.Reference,
		credit.RefID,
		credit.AccountID,
		credit.CreatedAt,
		credit.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("credit %s: %w", credit.RefID, storage.ErrDuplicateRefID)
	}
	if err != nil {
		return fmt.Errorf("failed to create credit: %w", err)
	}
	return nil
}

// GetByRefID retrieves a credit by reference id.
func (r *CreditRepo) GetByRefID(ctx context.Context, refID string) (*domain.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE ref_id = $1`

	var row creditRow
	err := sqlx.GetContext(ctx, r.q, &row, query, refID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit: %w", err)
	}
	return row.toDomain(), nil
}

// ListUnconfirmed returns unconfirmed credits, oldest first.
func (r *CreditRepo) ListUnconfirmed(ctx context.Context, network string) ([]*domain.Credit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE network = $1 AND state = $2
		ORDER BY created_at, id
	`

	var rows []creditRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, network, string(domain.CreditStateUnconfirmed)); err != nil {
		return nil, fmt.Errorf("failed to list unconfirmed credits: %w", err)
	}

	credits := make([]*domain.Credit, len(rows))
	for i := range rows {
		credits[i] = rows[i].toDomain()
	}
	return credits, nil
}

// Complete promotes an unconfirmed credit. Completed credits are left untouched.
func (r *CreditRepo) Complete(ctx context.Context, id string, refID string) (bool, error) {
	query := `
		UPDATE credits
		SET state = $1, ref_id = COALESCE(NULLIF($2, ''), ref_id), updated_at = NOW()
		WHERE id = $3 AND state = $4
	`
	res, err := r.q.ExecContext(ctx, query,
		string(domain.CreditStateComplete),
		refID,
		id,
		string(domain.CreditStateUnconfirmed),
	)
	if isUniqueViolation(err) {
		return false, fmt.Errorf("credit %s: %w", refID, storage.ErrDuplicateRefID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to complete credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
