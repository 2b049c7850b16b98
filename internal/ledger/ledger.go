// Package ledger maintains the append-only hot wallet balance.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/infra/storage"
	"github.com/vietddude/walletnotify/internal/metrics"
)

// Delta is a signed change applied to the current snapshot.
type Delta struct {
	Available int64
	Total     int64
}

// Ledger appends balance snapshots. Every write is a new snapshot derived
// from the current one; snapshots are never updated.
type Ledger struct {
	store    storage.Store
	currency string
	now      func() time.Time
	log      *slog.Logger
}

// New creates a ledger for the given currency.
func New(store storage.Store, currency string) *Ledger {
	return &Ledger{
		store:    store,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
		log:      slog.Default().With("component", "ledger"),
	}
}

// Current returns the current snapshot, or a zero snapshot when none exists.
func (l *Ledger) Current(ctx context.Context, network string) (*domain.BalanceSnapshot, error) {
	snap, err := l.store.Balances().Latest(ctx, network)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return l.zero(network), nil
	}
	return snap, nil
}

// Adjust applies d to the current snapshot in its own unit of work.
func (l *Ledger) Adjust(ctx context.Context, network string, d Delta) (*domain.BalanceSnapshot, error) {
	return l.commit(ctx, "adjust", func(uow storage.UnitOfWork) (*domain.BalanceSnapshot, error) {
		return l.AdjustIn(ctx, uow, network, d)
	})
}

// AdjustIn applies d inside the caller's unit of work. The caller commits
// and then reports the snapshot with Record.
func (l *Ledger) AdjustIn(ctx context.Context, uow storage.UnitOfWork, network string, d Delta) (*domain.BalanceSnapshot, error) {
	base, err := uow.Balances().Latest(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("read current balance: %w", err)
	}
	if base == nil {
		base = l.zero(network)
	}

	snap := &domain.BalanceSnapshot{
		Available: base.Available + d.Available,
		Total:     base.Total + d.Total,
		Currency:  l.currency,
		Network:   network,
		Time:      l.now(),
	}
	if err := uow.Balances().Append(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Reground replaces the balance with values read from the node.
func (l *Ledger) Reground(ctx context.Context, network string, available, total int64) (*domain.BalanceSnapshot, error) {
	return l.commit(ctx, "reground", func(uow storage.UnitOfWork) (*domain.BalanceSnapshot, error) {
		snap := &domain.BalanceSnapshot{
			Available: available,
			Total:     total,
			Currency:  l.currency,
			Network:   network,
			Time:      l.now(),
		}
		if err := uow.Balances().Append(ctx, snap); err != nil {
			return nil, err
		}
		return snap, nil
	})
}

// Init seeds a zero snapshot unless the network already has one.
// It reports whether a snapshot was written.
func (l *Ledger) Init(ctx context.Context, network string) (*domain.BalanceSnapshot, bool, error) {
	existing, err := l.store.Balances().Latest(ctx, network)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	snap, err := l.Reground(ctx, network, 0, 0)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Record publishes a committed snapshot to the balance gauges.
func (l *Ledger) Record(snap *domain.BalanceSnapshot) {
	metrics.HotWalletBalance.WithLabelValues(snap.Network, "available").Set(float64(snap.Available))
	metrics.HotWalletBalance.WithLabelValues(snap.Network, "total").Set(float64(snap.Total))
}

func (l *Ledger) commit(
	ctx context.Context,
	operation string,
	fn func(uow storage.UnitOfWork) (*domain.BalanceSnapshot, error),
) (*domain.BalanceSnapshot, error) {
	uow, err := l.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %s: %w", operation, err)
	}
	defer uow.Rollback()

	snap, err := fn(uow)
	if err == nil {
		err = uow.Commit()
	}
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues(operation).Inc()
		l.log.Error("balance update rolled back", "operation", operation, "error", err)
		return nil, fmt.Errorf("%s balance: %w", operation, err)
	}

	l.Record(snap)
	return snap, nil
}

func (l *Ledger) zero(network string) *domain.BalanceSnapshot {
	return &domain.BalanceSnapshot{Currency: l.currency, Network: network}
}
