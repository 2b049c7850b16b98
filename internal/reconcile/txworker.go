package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/emitter"
	"github.com/vietddude/walletnotify/internal/infra/chain"
	"github.com/vietddude/walletnotify/internal/infra/storage"
	"github.com/vietddude/walletnotify/internal/ledger"
	"github.com/vietddude/walletnotify/internal/metrics"
	"github.com/vietddude/walletnotify/internal/notify"
)

// TxWorker consumes transaction notifications one at a time and records
// incoming credits exactly once per output.
type TxWorker struct {
	cfg     Config
	node    chain.Node
	store   storage.Store
	ledger  *ledger.Ledger
	sends   SendConfirmer
	emitter emitter.Emitter
	queue   *notify.TxQueue
	log     *slog.Logger
}

func NewTxWorker(
	cfg Config,
	node chain.Node,
	store storage.Store,
	l *ledger.Ledger,
	sends SendConfirmer,
	em emitter.Emitter,
	queue *notify.TxQueue,
) *TxWorker {
	return &TxWorker{
		cfg:     cfg,
		node:    node,
		store:   store,
		ledger:  l,
		sends:   sends,
		emitter: em,
		queue:   queue,
		log:     slog.Default().With("component", "tx_worker", "network", cfg.Network),
	}
}

// Run processes queued txids until the queue is closed and drained.
func (w *TxWorker) Run(ctx context.Context) {
	w.log.Info("transaction worker started")
	for {
		txid, ok := w.queue.Pop()
		if !ok {
			w.log.Info("transaction worker stopped")
			return
		}
		if err := w.ProcessTx(ctx, txid); err != nil {
			w.log.Error("failed to process transaction", "txid", txid, "error", err)
		}
	}
}

// ProcessTx handles every output of one wallet transaction. It only fails
// when the transaction cannot be fetched; per-output failures are logged.
func (w *TxWorker) ProcessTx(ctx context.Context, txid string) error {
	callCtx, cancel := detach(ctx, w.cfg.callTimeout())
	tx, err := w.node.GetTransaction(callCtx, txid)
	cancel()
	if err != nil {
		return err
	}

	confirmed := w.cfg.confirmed(tx)
	for p, out := range tx.Outputs {
		ref := domain.RefID(tx.TxID, p)
		switch out.Category {
		case domain.CategorySend:
			w.processSend(ctx, out, ref)
		case domain.CategoryReceive:
			result, err := w.processReceive(ctx, out, ref, confirmed)
			metrics.CreditsTotal.WithLabelValues(w.cfg.Network, result).Inc()
			switch {
			case errors.Is(err, domain.ErrDuplicateCredit):
				w.log.Info("credit already recorded", "ref_id", ref)
			case errors.Is(err, domain.ErrUnknownAddress):
				w.log.Warn("receive to unknown address", "ref_id", ref, "address", out.Address)
			case err != nil:
				w.log.Error("failed to record credit", "ref_id", ref, "error", err)
			}
		default:
			w.log.Debug("skipping output", "ref_id", ref, "category", out.Category)
		}
	}
	return nil
}

func (w *TxWorker) processSend(ctx context.Context, out domain.TransactionOutput, ref string) {
	if w.sends == nil {
		return
	}
	amount, err := domain.ToMinorUnits(-out.Amount)
	if err != nil {
		w.log.Error("invalid send amount", "ref_id", ref, "amount", out.Amount, "error", err)
		return
	}
	callCtx, cancel := detach(ctx, w.cfg.callTimeout())
	defer cancel()
	if err := w.sends.ConfirmSend(callCtx, out.Address, amount, ref); err != nil {
		w.log.Error("failed to confirm send", "ref_id", ref, "error", err)
	}
}

// processReceive records one incoming payment and raises the total balance
// in the same unit of work. It returns the outcome label.
func (w *TxWorker) processReceive(
	ctx context.Context,
	out domain.TransactionOutput,
	ref string,
	confirmed bool,
) (string, error) {
	ctx, cancel := detach(ctx, w.cfg.callTimeout())
	defer cancel()

	existing, err := w.store.Credits().GetByRefID(ctx, ref)
	if err != nil {
		return "error", err
	}
	if existing != nil {
		return "duplicate", domain.ErrDuplicateCredit
	}

	owner, err := w.store.Addresses().Get(ctx, out.Address)
	if err != nil {
		return "error", err
	}
	if owner == nil {
		return "unknown_address", domain.ErrUnknownAddress
	}

	amount, err := domain.ToMinorUnits(out.Amount)
	if err != nil {
		return "error", err
	}

	credit := &domain.Credit{
		Amount:    amount,
		Address:   out.Address,
		Currency:  w.cfg.Currency,
		Network:   w.cfg.Network,
		State:     domain.CreditStateFor(confirmed),
		RefID:     ref,
		AccountID: owner.AccountID,
	}

	uow, err := w.store.Begin(ctx)
	if err != nil {
		return "error", err
	}
	defer uow.Rollback()

	err = uow.Credits().Create(ctx, credit)
	var snap *domain.BalanceSnapshot
	if err == nil {
		snap, err = w.ledger.AdjustIn(ctx, uow, w.cfg.Network, ledger.Delta{Total: amount})
	}
	if err == nil {
		err = uow.Commit()
	}
	if errors.Is(err, storage.ErrDuplicateRefID) {
		return "duplicate", fmt.Errorf("%w: %w", domain.ErrDuplicateCredit, err)
	}
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("credit").Inc()
		return "error", fmt.Errorf("rolled back credit %s: %w", ref, err)
	}

	w.ledger.Record(snap)
	w.log.Info("credit recorded",
		"ref_id", ref,
		"account_id", credit.AccountID,
		"amount", domain.FormatMajor(amount),
		"state", credit.State,
	)
	w.emit(ctx, domain.NewCreditEvent(domain.EventTypeCreditReceived, credit, time.Now().UTC()))
	return "recorded", nil
}

func (w *TxWorker) emit(ctx context.Context, event *domain.Event) {
	if w.emitter == nil {
		return
	}
	if err := w.emitter.Emit(ctx, event); err != nil {
		w.log.Warn("failed to emit event", "type", event.Type, "error", err)
	}
}
