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

// BalanceRepo implements storage.BalanceRepository using PostgreSQL.
type BalanceRepo struct {
	q sqlx.ExtContext
}

// NewBalanceRepo creates a new PostgreSQL balance repository.
func NewBalanceRepo(q sqlx.ExtContext) *BalanceRepo {
	return &BalanceRepo{q: q}
}

type balanceRow struct {
	ID        int64     `db:"id"`
	Available int64     `db:"available"`
	Total     int64     `db:"total"`
	Currency  string    `db:"currency"`
	Network   string    `db:"network"`
	Time      time.Time `db:"time"`
}

// Append inserts a snapshot and assigns its ID.
func (r *BalanceRepo) Append(ctx context.Context, snapshot *domain.BalanceSnapshot) error {
	if snapshot.Time.IsZero() {
		snapshot.Time = time.Now().UTC()
	}
	query := `
		INSERT INTO balance_snapshots (available, total, currency, network, time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.q.QueryRowxContext(ctx, query,
		snapshot.Available,
		snapshot.Total,
		snapshot.Currency,
		snapshot.Network,
		snapshot.Time,
	).Scan(&snapshot.ID)
	if err != nil {
		return fmt.Errorf("failed to append balance snapshot: %w", err)
	}
	return nil
}

// Latest returns the current snapshot of a network.
func (r *BalanceRepo) Latest(ctx context.Context, network string) (*domain.BalanceSnapshot, error) {
	query := `
		SELECT id, available, total, currency, network, time
		FROM balance_snapshots
		WHERE network = $1
		ORDER BY time DESC, id DESC
		LIMIT 1
	`

	var row balanceRow
	err := sqlx.GetContext(ctx, r.q, &row, query, network)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest balance: %w", err)
	}
	return &domain.BalanceSnapshot{
		ID:        row.ID,
		Available: row.Available,
		Total:     row.Total,
		Currency:  row.Currency,
		Network:   row.Network,
		Time:      row.Time,
	}, nil
}
