package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/emitter"
	"github.com/vietddude/walletnotify/internal/infra/chain"
	"github.com/vietddude/walletnotify/internal/infra/storage"
	"github.com/vietddude/walletnotify/internal/ledger"
	"github.com/vietddude/walletnotify/internal/metrics"
	"github.com/vietddude/walletnotify/internal/notify"
)

// BlockWorker promotes pending credits once they are deep enough and
// re-grounds the balance from the node after every new block.
type BlockWorker struct {
	cfg     Config
	node    chain.Node
	store   storage.Store
	ledger  *ledger.Ledger
	emitter emitter.Emitter
	signals *notify.Coalescer
	log     *slog.Logger

	lastHeight atomic.Int64
}

func NewBlockWorker(
	cfg Config,
	node chain.Node,
	store storage.Store,
	l *ledger.Ledger,
	em emitter.Emitter,
	signals *notify.Coalescer,
) *BlockWorker {
	return &BlockWorker{
		cfg:     cfg,
		node:    node,
		store:   store,
		ledger:  l,
		emitter: em,
		signals: signals,
		log:     slog.Default().With("component", "block_worker", "network", cfg.Network),
	}
}

// Run rescans once per coalesced block signal until the signal is closed.
func (w *BlockWorker) Run(ctx context.Context) {
	w.log.Info("block worker started")
	for w.signals.Wait() {
		if err := w.Rescan(ctx); err != nil {
			w.log.Error("block rescan abandoned", "error", err)
		}
	}
	w.log.Info("block worker stopped")
}

// LastHeight returns the last block height fully handled.
func (w *BlockWorker) LastHeight() int64 {
	return w.lastHeight.Load()
}

// Rescan confirms pending credits and re-grounds the balance. It is a
// no-op while the node height has not advanced. A node failure abandons
// the run without advancing the height, so the next signal retries it.
func (w *BlockWorker) Rescan(ctx context.Context) error {
	info, err := w.getInfo(ctx)
	if err != nil {
		return err
	}
	if info.Blocks <= w.lastHeight.Load() {
		w.log.Debug("height unchanged", "height", info.Blocks)
		return nil
	}
	metrics.ChainLatestBlock.WithLabelValues(w.cfg.Network).Set(float64(info.Blocks))

	confirmed, err := w.confirmPending(ctx)
	if err != nil {
		return err
	}

	snap, err := w.reground(ctx, info)
	if err != nil {
		return err
	}
	w.lastHeight.Store(info.Blocks)

	now := time.Now().UTC()
	for _, c := range confirmed {
		w.emit(ctx, domain.NewCreditEvent(domain.EventTypeCreditConfirmed, c, now))
	}
	if snap != nil {
		w.emit(ctx, domain.NewBalanceEvent(snap))
	}
	return nil
}

func (w *BlockWorker) getInfo(ctx context.Context) (*domain.NodeInfo, error) {
	callCtx, cancel := detach(ctx, w.cfg.callTimeout())
	defer cancel()
	return w.node.GetInfo(callCtx)
}

// confirmPending completes every pending credit whose transaction reached
// the threshold, in one unit of work. A persistence failure is logged and
// leaves every credit pending; it does not abandon the run.
func (w *BlockWorker) confirmPending(ctx context.Context) ([]*domain.Credit, error) {
	ctx = context.WithoutCancel(ctx)

	pending, err := w.store.Credits().ListUnconfirmed(ctx, w.cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("list pending credits: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	// Fetch before opening the unit of work so no transaction stays open
	// across node calls.
	txs := make(map[string]*domain.TransactionDetail)
	for _, c := range pending {
		txid, _ := domain.SplitRefID(c.RefID)
		if _, ok := txs[txid]; ok {
			continue
		}
		callCtx, cancel := detach(ctx, w.cfg.callTimeout())
		tx, err := w.node.GetTransaction(callCtx, txid)
		cancel()
		if rejected(err) {
			// Conflicted or abandoned; the rest of the batch goes on.
			w.log.Warn("skipping pending credit", "ref_id", c.RefID, "error", err)
			txs[txid] = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		txs[txid] = tx
	}

	uow, err := w.store.Begin(ctx)
	if err != nil {
		w.log.Error("failed to begin confirmation batch", "error", err)
		return nil, nil
	}
	defer uow.Rollback()

	var confirmed []*domain.Credit
	for _, c := range pending {
		txid, idx := domain.SplitRefID(c.RefID)
		tx := txs[txid]
		if tx == nil || !w.cfg.confirmed(tx) {
			continue
		}

		ref, err := w.rewriteRefID(ctx, uow, c, tx, idx)
		if err != nil {
			return w.rollback(err)
		}
		ok, err := uow.Credits().Complete(ctx, c.ID, ref)
		if err != nil {
			return w.rollback(err)
		}
		if !ok {
			continue
		}
		done := *c
		_ = done.Complete(ref)
		confirmed = append(confirmed, &done)
	}

	if len(confirmed) == 0 {
		return nil, nil
	}
	if err := uow.Commit(); err != nil {
		return w.rollback(err)
	}

	metrics.CreditsConfirmed.WithLabelValues(w.cfg.Network).Add(float64(len(confirmed)))
	w.log.Info("credits confirmed", "count", len(confirmed))
	return confirmed, nil
}

func (w *BlockWorker) rollback(err error) ([]*domain.Credit, error) {
	metrics.PersistenceFailures.WithLabelValues("confirm").Inc()
	w.log.Error("confirmation batch rolled back", "error", err)
	return nil, nil
}

// rewriteRefID picks the reference id a credit should carry once complete:
// the position of its output in the freshly fetched transaction. The
// original id is kept when no output matches or the new id is taken.
func (w *BlockWorker) rewriteRefID(
	ctx context.Context,
	uow storage.UnitOfWork,
	c *domain.Credit,
	tx *domain.TransactionDetail,
	idx int,
) (string, error) {
	p, ok := matchOutput(tx, c, idx)
	if !ok {
		w.log.Warn("no matching output for pending credit, keeping ref id", "ref_id", c.RefID)
		return c.RefID, nil
	}
	ref := domain.RefID(tx.TxID, p)
	if ref == c.RefID {
		return ref, nil
	}

	other, err := uow.Credits().GetByRefID(ctx, ref)
	if err != nil {
		return "", err
	}
	if other != nil && other.ID != c.ID {
		w.log.Warn("ref id already taken, keeping original", "ref_id", c.RefID, "candidate", ref)
		return c.RefID, nil
	}
	w.log.Info("output moved, rewriting ref id", "from", c.RefID, "to", ref)
	return ref, nil
}

// matchOutput finds the receive output paying c, preferring index idx.
func matchOutput(tx *domain.TransactionDetail, c *domain.Credit, idx int) (int, bool) {
	matches := func(o domain.TransactionOutput) bool {
		if o.Category != domain.CategoryReceive || o.Address != c.Address {
			return false
		}
		amount, err := domain.ToMinorUnits(o.Amount)
		return err == nil && amount == c.Amount
	}

	if idx >= 0 && idx < len(tx.Outputs) && matches(tx.Outputs[idx]) {
		return idx, true
	}
	for p, o := range tx.Outputs {
		if matches(o) {
			return p, true
		}
	}
	return 0, false
}

func (w *BlockWorker) reground(ctx context.Context, info *domain.NodeInfo) (*domain.BalanceSnapshot, error) {
	callCtx, cancel := detach(ctx, w.cfg.callTimeout())
	defer cancel()

	totalMajor, err := w.node.GetBalance(callCtx, "*", 0)
	if err != nil {
		return nil, err
	}
	total, err := domain.ToMinorUnits(totalMajor)
	if err != nil {
		return nil, err
	}
	available, err := domain.ToMinorUnits(info.Balance)
	if err != nil {
		return nil, err
	}

	snap, err := w.ledger.Reground(callCtx, w.cfg.Network, available, total)
	if err != nil {
		// Already logged and rolled back by the ledger.
		return nil, nil
	}
	return snap, nil
}

func (w *BlockWorker) emit(ctx context.Context, event *domain.Event) {
	if w.emitter == nil {
		return
	}
	if err := w.emitter.Emit(ctx, event); err != nil {
		w.log.Warn("failed to emit event", "type", event.Type, "error", err)
	}
}
